package download

import (
	"context"
	"errors"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
	"github.com/desertthunder/mcx/internal/tasks"
)

// AfterFunc runs once the artifact is present on disk, whether it was fetched or already there.
type AfterFunc func(ctx context.Context, a *models.Artifact) error

// Task adapts a [Request] into a [tasks.Task]. Skip signals are logged and swallowed.
type Task struct {
	tasks.Base
	service *Service
	request *Request
	after   AfterFunc
}

// NewTask creates a task downloading req with s.
func NewTask(s *Service, req *Request) *Task {
	name := "download"
	if req != nil && req.Artifact != nil {
		name = "download " + req.Artifact.FileName()
	}
	return &Task{Base: tasks.NewBase(name), service: s, request: req}
}

// Then runs fn after a successful or skipped-as-present download.
func (t *Task) Then(fn AfterFunc) *Task {
	t.after = fn
	return t
}

// Request returns the wrapped request.
func (t *Task) Request() *Request { return t.request }

// Run downloads the artifact and returns it.
func (t *Task) Run(ctx context.Context) (any, error) {
	err := t.service.Download(ctx, t.request)
	switch {
	case err == nil, errors.Is(err, shared.ErrAlreadyDownloaded):
		if err != nil {
			t.service.logger.Debug("Using already downloaded file", "file", t.request.Artifact.FileName())
		}
		if t.after != nil {
			if err := t.after(ctx, t.request.Artifact); err != nil {
				return nil, err
			}
		}
		return t.request.Artifact, nil
	case shared.IsSignal(err):
		t.service.logger.Debug("Download skipped", "reason", err)
		return nil, nil
	default:
		return nil, err
	}
}
