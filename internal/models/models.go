// package models defines the data model for the recommendation run history
package models

import "time"

// Model is the base interface for persisted entities.
// Implementations include RecRun.
type Model interface {
	ID() string           // ID returns the entity's unique identifier
	CreatedAt() time.Time // CreatedAt returns when the entity was first persisted
	UpdatedAt() time.Time // UpdatedAt returns when the entity last changed
	Validate() error      // Validate checks the entity's data before persistence
}

// Repository defines data access for one entity type.
//
// Latest returns the highest-sequence entity; the run history treats that
// as the current state of the managed playlist.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new entity
	Get(id string) (T, error)                  // Get retrieves an entity by ID
	Latest() (T, error)                        // Latest returns the highest-sequence entity
	Update(model T) error                      // Update rewrites an existing entity
	Delete(id string) error                    // Delete removes an entity by ID
	List(criteria map[string]any) ([]T, error) // List retrieves entities matching the criteria
}
