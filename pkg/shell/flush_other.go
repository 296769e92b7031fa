//go:build !linux

package shell

// TODO: implement with TIOCFLUSH on the BSDs and darwin.
func flushInput(fd int) error {
	return nil
}
