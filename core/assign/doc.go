// Package assign implements the greedy per-day bin-packing engine that
// places cleaning jobs on technician schedules. Jobs are processed in
// (date, start) order, fixed-time jobs first; each picks the eligible
// technician with the lowest travel time from their current position,
// subject to the distinct-day limit, buffered time-window conflict checks
// and the overtime policy. Placement is deterministic: equal travel times
// resolve by ascending technician ID, and repeated runs over the same
// request produce identical buckets.
package assign
