// Command perfmgrd runs the vendor performance manager and haptic effect
// engine described in DESIGN.md: a NodeLooper hint dispatcher plus a
// HapticComposer/HapticRuntime actuator, wired together with the
// operator-facing subcommands in this package.
package main

func main() {
	Execute()
}
