package scheduling

import "casualty-dispatch/internal/models"

// Strategy decides which pending patients get a vehicle and a hospital.
// Schedule must commit each binding through Board.Commit and return only the
// bindings created during this call.
type Strategy interface {
	Name() string
	Schedule(b *Board) []models.Assignment
}
