// Package warmup computes the maximum sending volume permitted for a
// sending domain on each day of its reputation ramp-up.
//
// The daily ceiling is a pure function of elapsed time since the stored
// start date: no daily job is required to advance a domain. Lifecycle
// operations (start, pause, resume, complete) mutate the persisted state
// through the Repository interface; the service layer never touches
// database/sql directly.
package warmup
