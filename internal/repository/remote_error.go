package repository

import (
	"errors"

	"github.com/noah-isme/campus-admin-api/internal/models"
	"github.com/noah-isme/campus-admin-api/internal/store"
	appErrors "github.com/noah-isme/campus-admin-api/pkg/errors"
)

// remoteError maps a store failure onto the API error taxonomy, keeping the store's message.
func remoteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, err.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrRemote.Code, appErrors.ErrRemote.Status, err.Error())
}

// canonicalStartTime rewrites HH:mm:ss values returned by Postgres time columns as HH:mm.
func canonicalStartTime(course models.Course) models.Course {
	if clock, err := models.ParseClock(course.StartTime); err == nil {
		course.StartTime = clock.String()
	}
	return course
}
