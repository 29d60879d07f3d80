// cmd/chronicle/main.go
package main

func main() {
	Execute()
}
