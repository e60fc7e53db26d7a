// Command scorecard computes balanced scorecard results for a workspace.
package main

func main() {
	Execute()
}
