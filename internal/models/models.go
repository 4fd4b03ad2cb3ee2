// package models defines the data model for the instance installer and launcher
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations include Blob and Launch.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Blob is the cache index record of a file written by the download service.
type Blob struct {
	id        string
	kind      Kind
	path      string
	url       string
	sha1      string
	size      int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBlob creates an index record for the artifact stored at path.
func NewBlob(a *Artifact, path string, size int64) *Blob {
	now := time.Now().UTC()
	sum := a.CurrentHash
	if sum == "" {
		sum = a.SHA1
	}
	return &Blob{kind: a.Kind, path: path, url: a.URL, sha1: sum, size: size, createdAt: now, updatedAt: now}
}

// RestoreBlob rebuilds a record read from storage.
func RestoreBlob(id string, kind Kind, path, url, sha1 string, size int64, created, updated time.Time) *Blob {
	return &Blob{id: id, kind: kind, path: path, url: url, sha1: sha1, size: size, createdAt: created, updatedAt: updated}
}

func (b *Blob) ID() string           { return b.id }
func (b *Blob) SetID(id string)      { b.id = id }
func (b *Blob) Kind() Kind           { return b.kind }
func (b *Blob) Path() string         { return b.path }
func (b *Blob) URL() string          { return b.url }
func (b *Blob) SHA1() string         { return b.sha1 }
func (b *Blob) Size() int64          { return b.size }
func (b *Blob) CreatedAt() time.Time { return b.createdAt }
func (b *Blob) UpdatedAt() time.Time { return b.updatedAt }

// SetUpdatedAt stamps the record as modified.
func (b *Blob) SetUpdatedAt(t time.Time) { b.updatedAt = t }

// Validate requires an id and a path.
func (b *Blob) Validate() error {
	if b.id == "" {
		return fmt.Errorf("blob id is required")
	}
	if b.path == "" {
		return fmt.Errorf("blob path is required")
	}
	return nil
}

// Launch records one spawned game process.
type Launch struct {
	id         string
	instanceID string
	version    string
	pid        int
	exitCode   *int
	errMsg     string
	startedAt  time.Time
	exitedAt   *time.Time
}

// NewLaunch creates a record for a process that just started.
func NewLaunch(instanceID, version string, pid int) *Launch {
	return &Launch{instanceID: instanceID, version: version, pid: pid, startedAt: time.Now().UTC()}
}

// RestoreLaunch rebuilds a record read from storage.
func RestoreLaunch(id, instanceID, version string, pid int, exitCode *int, errMsg string, started time.Time, exited *time.Time) *Launch {
	return &Launch{id: id, instanceID: instanceID, version: version, pid: pid, exitCode: exitCode, errMsg: errMsg, startedAt: started, exitedAt: exited}
}

func (l *Launch) ID() string           { return l.id }
func (l *Launch) SetID(id string)      { l.id = id }
func (l *Launch) InstanceID() string   { return l.instanceID }
func (l *Launch) Version() string      { return l.version }
func (l *Launch) PID() int             { return l.pid }
func (l *Launch) ExitCode() *int       { return l.exitCode }
func (l *Launch) ErrorMessage() string { return l.errMsg }
func (l *Launch) StartedAt() time.Time { return l.startedAt }
func (l *Launch) ExitedAt() *time.Time { return l.exitedAt }
func (l *Launch) CreatedAt() time.Time { return l.startedAt }
func (l *Launch) UpdatedAt() time.Time {
	if l.exitedAt != nil {
		return *l.exitedAt
	}
	return l.startedAt
}

// MarkExited records the process exit.
func (l *Launch) MarkExited(code int, err error) {
	now := time.Now().UTC()
	l.exitCode = &code
	l.exitedAt = &now
	if err != nil {
		l.errMsg = err.Error()
	}
}

// Validate requires an id and an instance.
func (l *Launch) Validate() error {
	if l.id == "" {
		return fmt.Errorf("launch id is required")
	}
	if l.instanceID == "" {
		return fmt.Errorf("launch instance id is required")
	}
	return nil
}
