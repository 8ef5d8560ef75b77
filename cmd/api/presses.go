package main

import (
	"errors"
	"net/http"

	"github.com/aoideee/bookstore-api/internal/data"
)

// listPressesHandler handles GET /v1/presses.
func (app *applicationDependencies) listPressesHandler(w http.ResponseWriter, r *http.Request) {
	presses, err := app.models.Presses.GetAll(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": http.StatusOK, "message": "presses retrieved", "results": presses}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showPressHandler handles GET /v1/presses/:id.
func (app *applicationDependencies) showPressHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	press, err := app.models.Presses.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": http.StatusOK, "message": "press retrieved", "results": press}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// healthcheckHandler handles GET /v1/healthcheck.
func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, envelope{
		"status":  http.StatusOK,
		"message": "available",
		"results": map[string]string{
			"environment": app.config.Env,
			"version":     appVersion,
		},
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
