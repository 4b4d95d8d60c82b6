package models

import "time"

// Project is a persisted rig design: its parameter set plus the placed
// components stored alongside it.
type Project struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Params    GeometryParameters `json:"params"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ProjectSummary is the list view of a project.
type ProjectSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ComponentCount int       `json:"componentCount"`
}

// NewProject creates a project with the given id and name, stamped now.
func NewProject(id, name string, params GeometryParameters) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:        id,
		Name:      name,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
