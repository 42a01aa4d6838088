package main

import "github.com/MeKo-Tech/facescan/cmd/facescan/cmd"

func main() {
	cmd.Execute()
}
