// Package client runs declared endpoints against a REST API.
//
// A Client is a session: it owns the transport, merges the session-level
// response and retry mappings with the endpoint-level ones, and resolves
// every response into a decoded value or a typed error.
//
//	var getPet = endpoint.MustNew(http.MethodGet, "/pet/{petId}",
//	    endpoint.Params(endpoint.PathParam[int]("petId")),
//	    endpoint.Returns[Pet](),
//	    endpoint.MapStatus(http.StatusNotFound, func(e *errors.CallError) error { return &PetNotFoundError{e} }),
//	)
//
//	c, err := client.New(client.Config{BaseURL: "https://petstore.swagger.io/v2"})
//	err = c.With(ctx, func(ctx context.Context, c *client.Client) error {
//	    pet, err := client.Call[Pet](ctx, c, getPet, binding.Args{"petId": 1})
//	    ...
//	})
//
// Asynchronous sessions (Config.Mode = endpoint.ModeAsync) only accept
// endpoints declared with endpoint.Async and are invoked through Go.
package client
