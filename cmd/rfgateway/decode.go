// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/tve/rflink/framer"
	"github.com/tve/rflink/rfm12"
)

var decodeFlags struct {
	port  string
	baud  int
	file  string
	group int
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode RF12 frames from a serial port or a capture file",
	Long: `Decode reads the raw bit stream of an RF12 transmitter, as produced by a
logic probe or a UART tapped onto the radio's data line, looks for the preamble
and sync bytes, and prints every frame of the selected group with its CRC status.`,
	Args: cobra.NoArgs,
	RunE: runDecode,
}

func init() {
	f := decodeCmd.Flags()
	f.StringVarP(&decodeFlags.port, "port", "p", "", "serial port device")
	f.IntVarP(&decodeFlags.baud, "baud", "b", 115200, "serial baud rate")
	f.StringVarP(&decodeFlags.file, "file", "f", "", "capture file to read instead of a port")
	f.IntVarP(&decodeFlags.group, "group", "g", rfm12.DefaultGroup, "RF12 network group")
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decodeFlags.group < 1 || decodeFlags.group > 255 {
		return fmt.Errorf("group must be 1..255, not %d", decodeFlags.group)
	}
	var in io.ReadCloser
	switch {
	case decodeFlags.file != "":
		f, err := os.Open(decodeFlags.file)
		if err != nil {
			return err
		}
		in = f
	case decodeFlags.port != "":
		mode := &serial.Mode{
			BaudRate: decodeFlags.baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(decodeFlags.port, mode)
		if err != nil {
			return fmt.Errorf("failed to open serial port %s: %w", decodeFlags.port, err)
		}
		in = port
	default:
		return errors.New("one of --port or --file is required")
	}
	defer in.Close()

	out := cmd.OutOrStdout()
	d := newStreamDecoder(byte(decodeFlags.group))
	st, err := d.decode(in, out)
	fmt.Fprintf(out, "%d frames, %d corrupt, %d dropped\n", st.frames, st.corrupt, st.dropped)
	return err
}

type decodeStats struct {
	frames, corrupt, dropped int
}

// streamDecoder finds RF12 frames in a raw byte stream. It hunts for a preamble byte followed
// by the sync byte and then feeds the framer until the frame ends.
type streamDecoder struct {
	rx     *framer.Rx
	synced bool
	prev   byte
}

func newStreamDecoder(group byte) *streamDecoder {
	return &streamDecoder{rx: framer.NewRx(group, 2*(framer.MaxPayload+2))}
}

// feed processes one byte and returns the framer's verdict, Ignored while hunting for sync.
func (d *streamDecoder) feed(b byte) framer.Result {
	if !d.synced {
		d.synced = d.prev == framer.Preamble && b == framer.Sync
		d.prev = b
		return framer.Ignored
	}
	res := d.rx.Append(b)
	if res == framer.Ignored || res.Done() {
		d.synced, d.prev = false, 0
	}
	return res
}

// decode reads in until EOF and prints each frame to out.
func (d *streamDecoder) decode(in io.Reader, out io.Writer) (decodeStats, error) {
	var st decodeStats
	buf := make([]byte, 128)
	for {
		n, err := in.Read(buf)
		for _, b := range buf[:n] {
			switch d.feed(b) {
			case framer.Complete:
				st.frames++
				d.print(out)
			case framer.Corrupt:
				st.corrupt++
				fmt.Fprintln(out, "[CRC ERROR]")
			case framer.Dropped:
				st.dropped++
			}
		}
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, err
		}
	}
}

// print pops the completed frame and writes it on one line.
func (d *streamDecoder) print(out io.Writer) {
	if !d.rx.ReadStart() {
		return
	}
	defer d.rx.ReadEnd()
	h, err := d.rx.ReadByte()
	if err != nil {
		return
	}
	data := make([]byte, 0, d.rx.Remaining())
	for {
		b, err := d.rx.ReadByte()
		if err != nil {
			break
		}
		data = append(data, b)
	}
	line := fmt.Sprintf("%s len=%d", rfm12.Header(h), len(data))
	if len(data) > 0 {
		line += fmt.Sprintf(" % X", data)
		if f, ok := payloadFormats[data[0]]; ok {
			if v, err := f.decode(data[1:]); err != nil {
				line += fmt.Sprintf(" %s: %s", f.name, err)
			} else {
				line += fmt.Sprintf(" %s: %s", f.name, v)
			}
		}
	}
	fmt.Fprintln(out, line)
}
