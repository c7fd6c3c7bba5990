// Command procsim runs the example models that come with the procsim
// simulator.
package main

import "github.com/sarchlab/procsim/procsim/cmd"

func main() {
	cmd.Execute()
}
