// Package component runs loom components: registered view descriptions
// paired with controllers, rendered by an App into a surface.
//
// # Registry
//
// Components, directives and services are registered on a Registry that is
// handed to the App. Nothing is registered globally:
//
//	r := component.NewRegistry().
//	    Component("counter", component.Definition{
//	        View:       view.MustParse(counterView),
//	        Controller: counterController,
//	    }).
//	    Service("session", newSession, true)
//
// # Controllers
//
// A Controller runs once per instance, after the view is prepared and before
// it renders. It declares state on the component graph, registers actions
// the view calls, declares events and attaches lifecycle hooks:
//
//	func counterController(c *component.Component) (any, error) {
//	    c.State().Add("count", 0)
//	    c.ActionSet().Add("inc", func(...any) (any, error) {
//	        n, _ := c.State().Get("count").Value().(int)
//	        return nil, c.State().SetValue("count", n+1)
//	    })
//	    return nil, nil
//	}
//
// The value a controller returns is what a ref to the component exposes.
//
// # State scoping
//
// Each component graph is a child of the App state, so names declared on
// the App are readable from every view. Props passed by a parent view are
// mirrored into the component graph, one item per prop.
package component
