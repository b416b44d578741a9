// Package endpoint declares remote REST operations.
//
// A Descriptor is built once, usually in a package-level var, and is shared
// read-only by every client and every concurrent call:
//
//	var getPet = endpoint.MustNew(http.MethodGet, "/pet/{petId}",
//	    endpoint.Named("GetPet"),
//	    endpoint.Params(endpoint.PathParam[int]("petId")),
//	    endpoint.Returns[Pet](),
//	    endpoint.MapStatus(http.StatusNotFound, PetNotFound.Factory()),
//	)
//
// Declaration errors (two body parameters, a path placeholder without a
// parameter, a path parameter missing from the template) fail New with a
// binding error instead of surfacing at call time.
package endpoint
