package main

import "github.com/mpapenbr/f1-prediction-engine/cmd"

func main() {
	cmd.Execute()
}
