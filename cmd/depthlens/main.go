// Command depthlens overlays object detections on a depth camera's color
// stream and reports each object's 3D position.
package main

func main() {
	Execute()
}
