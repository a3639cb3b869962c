// Package sim runs Vicsek-style flocking simulations.
//
// A [Simulation] is an immutable snapshot: a swarm, the elapsed time, the
// physical [Params] and the random-source state. [Simulation.Step] returns a
// new snapshot and never touches the receiver:
//
//	s, err := sim.New(125, params, sim.WithSeed(42))
//	next := s.Step()
//	phi, err := next.StationaryOrder(sim.DefaultStationaryConfig())
//
// # Randomness
//
// Each snapshot carries its own PCG state by value. Stepping the same
// snapshot twice gives the same result, and snapshots can be evaluated from
// different goroutines without synchronization. [StationaryOrders] relies on
// this to evaluate independent jobs concurrently.
package sim
