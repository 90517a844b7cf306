package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("op", "missing")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrapped: %w", Conflict("op", "taken"))))
	assert.Equal(t, KindTransient, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("svc: %w", Forbidden("appointments.cancel", "not yours"))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrConflict))
}

func TestFromStore(t *testing.T) {
	notFound := FromStore("op", fmt.Errorf("store: %w", pgx.ErrNoRows), "appointment not found", "")
	assert.True(t, errors.Is(notFound, ErrNotFound))
	assert.True(t, errors.Is(notFound, pgx.ErrNoRows))

	dup := FromStore("op", &pgconn.PgError{Code: "23505"}, "", "slot already booked")
	assert.True(t, errors.Is(dup, ErrConflict))
	assert.Equal(t, "slot already booked", dup.(*Error).Message())

	other := FromStore("op", errors.New("connection reset"), "", "")
	assert.Equal(t, KindTransient, KindOf(other))

	already := Validation("op", "bad")
	assert.Same(t, already, FromStore("other", already, "", ""))
	assert.Nil(t, FromStore("op", nil, "", ""))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "reviews.create: rating must be between 1 and 5",
		Validation("reviews.create", "rating must be between 1 and 5").Error())
	assert.Equal(t, "not_found", (&Error{Kind: KindNotFound}).Error())
}
