package controllers

import (
	"net/http"

	"github.com/portalakashico/portal-backend/api/responses"
)

const pingMessage = "Portal Akáshico online 🌌"

func Ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, map[string]string{"message": pingMessage})
	}
}
