package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
)

const launchColumns = `id, instance_id, version, pid, exit_code, error, started_at, exited_at`

// LaunchRepository implements models.Repository[*models.Launch] for the launch history.
type LaunchRepository struct {
	db *sql.DB
}

// NewLaunchRepository creates a new LaunchRepository with the given database connection
func NewLaunchRepository(db *sql.DB) *LaunchRepository {
	return &LaunchRepository{db: db}
}

// Create inserts a new [models.Launch] with a generated ID
func (r *LaunchRepository) Create(launch *models.Launch) error {
	launch.SetID(shared.GenerateID())
	if err := launch.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO launches (` + launchColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		launch.ID(),
		launch.InstanceID(),
		launch.Version(),
		launch.PID(),
		launch.ExitCode(),
		launch.ErrorMessage(),
		launch.StartedAt(),
		launch.ExitedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert launch: %w", err)
	}
	return nil
}

// Get retrieves a launch by ID
func (r *LaunchRepository) Get(id string) (*models.Launch, error) {
	query := `SELECT ` + launchColumns + ` FROM launches WHERE id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// Update writes the exit state of a launch
func (r *LaunchRepository) Update(launch *models.Launch) error {
	if err := launch.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `UPDATE launches SET pid = ?, exit_code = ?, error = ?, exited_at = ? WHERE id = ?`
	result, err := r.db.Exec(query,
		launch.PID(),
		launch.ExitCode(),
		launch.ErrorMessage(),
		launch.ExitedAt(),
		launch.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update launch: %w", err)
	}
	return affected(result, "launch", launch.ID())
}

// Delete removes a launch by ID
func (r *LaunchRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM launches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete launch: %w", err)
	}
	return affected(result, "launch", id)
}

// List retrieves launches, newest first, filtered by the criteria "instance_id" and "limit"
func (r *LaunchRepository) List(criteria map[string]any) ([]*models.Launch, error) {
	query := `SELECT ` + launchColumns + ` FROM launches WHERE 1 = 1`
	args := []any{}

	if inst, ok := criteria["instance_id"].(string); ok && inst != "" {
		query += " AND instance_id = ?"
		args = append(args, inst)
	}

	query += " ORDER BY started_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query launches: %w", err)
	}
	defer rows.Close()

	var launches []*models.Launch
	for rows.Next() {
		launch, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		launches = append(launches, launch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return launches, nil
}

// Started records a freshly spawned game and returns the new launch ID.
func (r *LaunchRepository) Started(ctx context.Context, instanceID, version string, pid int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	launch := models.NewLaunch(instanceID, version, pid)
	if err := r.Create(launch); err != nil {
		return "", err
	}
	return launch.ID(), nil
}

// Exited records the exit of a launch created by [LaunchRepository.Started].
func (r *LaunchRepository) Exited(ctx context.Context, id string, code int, exitErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	launch, err := r.Get(id)
	if err != nil {
		return err
	}
	launch.MarkExited(code, exitErr)
	return r.Update(launch)
}

// ListByInstance returns up to limit launches of an instance, newest first. A limit of zero means all.
func (r *LaunchRepository) ListByInstance(instanceID string, limit int) ([]*models.Launch, error) {
	return r.List(map[string]any{"instance_id": instanceID, "limit": limit})
}

func (r *LaunchRepository) scan(s scanner) (*models.Launch, error) {
	var (
		id, instanceID, version, errMsg string
		pid                             int
		exitCode                        sql.NullInt64
		startedAt                       time.Time
		exitedAt                        sql.NullTime
	)

	err := s.Scan(&id, &instanceID, &version, &pid, &exitCode, &errMsg, &startedAt, &exitedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: launch", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan launch: %w", err)
	}

	var code *int
	if exitCode.Valid {
		c := int(exitCode.Int64)
		code = &c
	}
	var exited *time.Time
	if exitedAt.Valid {
		exited = &exitedAt.Time
	}
	return models.RestoreLaunch(id, instanceID, version, pid, code, errMsg, startedAt, exited), nil
}
