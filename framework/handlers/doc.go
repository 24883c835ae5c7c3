// Package handlers provides the stock container pipeline handlers.
//
//	set := handlers.NewSet("example.com/app")
//	c, err := container.New(container.WithHandlers(set.Handlers()...))
//
//	set.Bindings.Bind(container.TypeOf[Greeter](), container.TypeOf[*english]())
//	c.ProvideExternal("port", 8080)
//
// Each handler implements one or more of the container capability
// interfaces; order within a capability is the order of Handlers.
package handlers
