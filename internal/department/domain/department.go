package domain

import "time"

type Department struct {
	ID          string
	CompanyID   string
	Name        string
	Description *string
	CreatedAt   time.Time
}
