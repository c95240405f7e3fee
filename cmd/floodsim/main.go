// Idiomatic entrypoint for the floodsim CLI; all flag/command wiring
// lives in cmd/floodsim/root.go.
package main

func main() {
	Execute()
}
