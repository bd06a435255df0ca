package main

import "fmt"

func greet(name string) string {
	msg := "hello, " + name
	return msg
}

func main() {
	out := greet("deet")
	fmt.Println(out)
}
