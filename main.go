package main

import "github.com/phpguard/phpguard/cmd/phpguard"

func main() { phpguard.Execute() }
