package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every HTTP handler group that registers routes
// on the application's router.
type Handler interface {
	RegisterRoutes(router *httprouter.Router)
}
