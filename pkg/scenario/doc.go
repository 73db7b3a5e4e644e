// Package scenario defines the ordered, single-attempt acceptance flow that
// questcheck drives through a browser, and the step engine that runs it.
//
// A run is a list of Steps executed strictly in sequence against one shared
// State. The first failing step becomes the run's error; the steps after it
// are reported as skipped, except steps marked Always (teardown), which run
// regardless. Nothing is retried.
//
// The quest flow itself lives in Quest: load the app, sign in through a
// LoginFixture, open the Begin Quest dialog, confirm into the dungeon page
// the app opens in a new tab, check every set and capture a screenshot.
// Every selector and literal it relies on is held in Expectations.
package scenario
