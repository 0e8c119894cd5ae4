// Package luahost implements host.Host on an embedded Lua interpreter.
//
// The interpreter exposes the simulator's export surface as Lua globals:
//
//	Export.GetDevice(id):performClickableAction(command, value)
//	Export.GetDevice(id):get_argument_value(argument)
//	Export.LoSetCommand(command)
//	Export.LoGetSelfData().Name
//	DCS.getModelTime()
//	DCS.getPause()
//	list_indication(device)
//	list_cockpit_params()
//
// A script supplies those globals. Without one, the embedded bench script is
// loaded, which models a small part of a cockpit well enough to run a
// start-up end to end. An optional global on_frame(dt) is called once per
// frame through Frame.
//
// A Host is not safe for concurrent use. Every method must be called from the
// host goroutine, normally an executor.Driver.
package luahost
