package main

import "github.com/charlesvien/game-nite/cmd/gamenite"

func main() {
	gamenite.Execute()
}
