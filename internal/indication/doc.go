// Package indication turns the simulator's flat avionics indication dumps into
// a navigable tree, and scans the cockpit parameter listing.
//
// A dump is a run of segments separated by a line of 41 dashes. Each segment
// starts with a field name and a value; a following `children are {` line opens
// a group whose members are the segments after it, and each `}` closes one.
//
//	-----------------------------------------
//	HUD_Window7_origin
//
//	children are {
//	-----------------------------------------
//	HUD_Window7_AlignmentStatus
//	ALIGN
//	}
//
// All top-level segments hang under a synthetic root node named "root".
package indication
