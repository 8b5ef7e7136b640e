/*
Package wm owns the set of open floating windows and their focus.

A Registry creates one Surface per window through a SurfaceFactory, hands
out identities that are never reused, and keeps exactly one window active
while any are open. Surfaces render the window somewhere else (a browser
page, a test fake) and report user interaction back as Events; they never
touch registry state themselves.

Example usage:

	reg := wm.NewRegistry[string](factory, wm.WithDefaults(cfgMgr.WindowDefaults))
	id, err := reg.Open("notes", map[string]any{"title": "Notes"}, nil)
	if err != nil {
		// handle error
	}
	reg.Close(id)
*/
package wm
