// Package logout реализует выход пользователя. Токены не хранятся на сервере,
// поэтому обработчик только подтверждает выход.
package logout

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-tracker/internal/http/response"
)

// ServeHTTP godoc
// @Summary Выход пользователя
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response
// @Router /auth/sign-out [post]
func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OK("User signed out successfully", nil))
}
