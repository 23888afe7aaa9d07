package main

import "github.com/kozaktomas/patient-face-id/cmd"

func main() {
	cmd.Execute()
}
