package main

import (
	"log"
	"os"
)

func main() {
	defer func() {
		os.Exit(2)
	}()
	if len(os.Args) > 3 {
		log.Fatalf("too many args: %d", len(os.Args)) // want "вызов log.Fatalf в функции main запрещён"
	}
	if len(os.Args) > 2 {
		log.Fatal("bad args") // want "вызов log.Fatal в функции main запрещён"
	}
	os.Exit(run()) // want "вызов os.Exit в функции main запрещён"
}

func run() int {
	os.Exit(1)
	return 0
}
