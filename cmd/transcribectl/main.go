// Command transcribectl is the operator CLI for the transcript pipeline.
package main

func main() {
	Execute()
}
