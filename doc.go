// Rachio bridge - a Polyglot/ISY node server for Rachio irrigation
// controllers.
//
// Features
//
// - Mirrors Rachio controllers, zones, schedules and flex schedules as ISY
// nodes
//
// - Push updates over Rachio webhooks (no cloud polling loops)
//
// - Commands passed through: enable/disable, stop watering, rain delay,
// start zone, start/skip/adjust schedules
//
// - Paced node creation for large installs
//
// - Local REST API for inspecting node state
//
// - Lightweight, small memory footprint (runs on the Raspberry Pi)
package rachio
