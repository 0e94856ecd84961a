package main

import "github.com/ValentinKolb/dPipe/cmd"

func main() {
	cmd.Execute()
}
