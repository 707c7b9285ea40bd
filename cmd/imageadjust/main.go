package main

import "github.com/MeKo-Tech/imageadjust/internal/cmd"

func main() {
	cmd.Execute()
}
