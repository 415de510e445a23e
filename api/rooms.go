package api

import (
	"net/http"

	"github.com/nijks777/sudoku/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func getRoom(handler *game.Handler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, loaded := handler.RoomSnapshot(chi.URLParam(r, "code"))
		if !loaded {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrNotFound)
			return
		}
		render.JSON(w, r, snapshot)
	}
}
