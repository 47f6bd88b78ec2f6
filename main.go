package main

import "triagebot/internal/app"

func main() {
	app.Main()
}
