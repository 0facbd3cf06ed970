// Package status interprets scraped VM states and tracks readiness
// conditions for the health endpoints.
//
// VM states are the raw second column of the script's table. The script
// prints whatever virsh prints, so a two-word state such as "shut off" is
// seen here as "shut". Only "running" and "paused" carry meaning for the
// action buttons; every other state is treated as stopped.
package status
