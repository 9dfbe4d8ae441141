package apikey

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/scrapekit/handler"
	"github.com/dmitrymomot/scrapekit/pkg/auth"
	"github.com/dmitrymomot/scrapekit/pkg/binder"
)

// CreateRequest is the body of POST /.
type CreateRequest struct {
	Name string `json:"name"`
}

// KeyPath addresses a single key.
type KeyPath struct {
	ID uuid.UUID `path:"id"`
}

// KeyView is the listing representation of a key.
type KeyView struct {
	Key
	Masked string `json:"masked"`
	Active bool   `json:"active"`
}

type empty struct{}

// Handle returns the API key routes. They expect auth.Middleware upstream.
func (s *Service) Handle() http.Handler {
	errorHandler := handler.NewErrorHandler(s.log, MapError)
	r := chi.NewRouter()

	r.Get("/", handler.Wrap(s.list,
		handler.WithErrorHandler[handler.Context, empty](errorHandler),
	))
	r.Post("/", handler.Wrap(s.create,
		handler.WithBinders[handler.Context, CreateRequest](binder.JSON()),
		handler.WithErrorHandler[handler.Context, CreateRequest](errorHandler),
	))
	r.Delete("/{id}", handler.Wrap(s.revoke,
		handler.WithBinders[handler.Context, KeyPath](binder.Path(chi.URLParam)),
		handler.WithErrorHandler[handler.Context, KeyPath](errorHandler),
	))

	return r
}

func (s *Service) list(ctx handler.Context, _ empty) handler.Response {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	keys, err := s.List(ctx, userID)
	if err != nil {
		return handler.Error(err)
	}
	views := make([]KeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, KeyView{Key: k, Masked: k.Masked(), Active: k.Active()})
	}
	return handler.JSON(views)
}

func (s *Service) create(ctx handler.Context, req CreateRequest) handler.Response {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	created, err := s.Create(ctx, userID, req.Name)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(created, handler.WithJSONStatus(http.StatusCreated))
}

func (s *Service) revoke(ctx handler.Context, req KeyPath) handler.Response {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}
	if err := s.Revoke(ctx, userID, req.ID); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

// MapError converts service errors to HTTP errors.
func MapError(err error) error {
	var verr handler.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.Is(err, ErrKeyNotFound):
		return handler.NewHTTPError(http.StatusNotFound, "api_key_not_found")
	case errors.Is(err, ErrTooManyKeys):
		return handler.NewHTTPError(http.StatusConflict, "api_key_limit_reached")
	case errors.Is(err, ErrInvalidKey):
		return handler.ErrUnauthorized
	}
	return err
}
