package core

import "time"

// Message is an inter-department message.
type Message struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	IsPriority   bool      `json:"is_priority"`
	DepartmentID string    `json:"department_id"`
	Avatar       string    `json:"avatar,omitempty"`
}

// Department is a venue team messages can be addressed from.
type Department struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

const (
	// UnknownDepartmentName is shown for messages whose department was removed.
	UnknownDepartmentName = "Unknown"
	// UnknownDepartmentColor is the neutral grey used for the fallback department.
	UnknownDepartmentColor = "#757575"
)

// FallbackDepartment returns the display placeholder for a dangling reference.
func FallbackDepartment(id string) Department {
	return Department{ID: id, Name: UnknownDepartmentName, Color: UnknownDepartmentColor}
}
