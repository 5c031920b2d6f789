// Command puhdas-jam plays a MIDI keyboard live through the synth, with the
// keys tuned to just intonation around a chosen root.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"gopkg.in/yaml.v3"

	"github.com/puhdas/puhdas"
	"github.com/puhdas/puhdas/midi"
	"github.com/puhdas/puhdas/oto"
	"github.com/puhdas/puhdas/synth"
	"github.com/puhdas/puhdas/version"
)

func main() {
	rate := flag.Int("rate", 44100, "Sample rate for rendering and playback.")
	device := flag.String("d", "", "Prefix of the MIDI input device name to open. By default, the first device is used.")
	list := flag.Bool("l", false, "List MIDI input devices and exit.")
	instrumentFile := flag.String("i", "", "Instrument .yml file to play. By default, a plain harmonic instrument is used.")
	root := flag.Float64("root", 264, "Frequency of the root key, in Hz.")
	rootKey := flag.Int("key", 60, "MIDI key number of the root.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	midiContext, err := midi.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not open MIDI: %v\n", err)
		os.Exit(1)
	}
	defer midiContext.Close()
	if *list {
		devices, err := midiContext.InputDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not list MIDI inputs: %v\n", err)
			os.Exit(1)
		}
		for _, name := range devices {
			fmt.Println(name)
		}
		return
	}
	instrument := defaultInstrument()
	if *instrumentFile != "" {
		inputBytes, err := os.ReadFile(*instrumentFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not read instrument file: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(inputBytes, &instrument); err != nil {
			fmt.Fprintf(os.Stderr, "could not parse instrument file: %v\n", err)
			os.Exit(1)
		}
	}
	mixer, err := synth.NewMixer(*rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not create mixer: %v\n", err)
		os.Exit(1)
	}
	audioContext, err := oto.NewContext(*rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire oto context: %v\n", err)
		os.Exit(1)
	}
	if err := midiContext.Open(*device, mixer, instrument, *root, uint8(*rootKey)); err != nil {
		fmt.Fprintf(os.Stderr, "could not open MIDI input: %v\n", err)
		os.Exit(1)
	}
	renderer := synth.NewRenderer(mixer)
	player := audioContext.Play(renderer.Reader())
	defer player.Close()
	go func() {
		for alert := range mixer.Alerts() {
			fmt.Fprintf(os.Stderr, "%v\n", alert.Kind)
		}
	}()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
	stats := mixer.Stats()
	fmt.Fprintf(os.Stderr, "underruns: %d, clipped buffers: %d\n",
		stats.Underruns.Load(), stats.Clips.Load())
}

// defaultInstrument is a slightly decaying tone with the first three
// overtones, enough to be playable without any instrument file.
func defaultInstrument() puhdas.Instrument {
	return puhdas.Instrument{
		Name: "default",
		Overtones: []puhdas.Overtone{
			{Interval: puhdas.Octave, Weight: 0.5},
			{Interval: mustInterval(3, 1), Weight: 0.25, HalfLife: 0.5},
			{Interval: mustInterval(4, 1), Weight: 0.125, HalfLife: 0.25},
		},
		HalfLife: 2,
	}
}

func mustInterval(n, d uint32) puhdas.Interval {
	interval, err := puhdas.NewInterval(n, d)
	if err != nil {
		panic(err)
	}
	return interval
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Puhdas live MIDI synth.\nUsage: %s [flags]\n", os.Args[0])
	flag.PrintDefaults()
}
