// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/ezrec/um/cpu"
	"github.com/ezrec/um/emulator"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout))
}

// run the command line, and return the process exit status.
// Files opened here are closed before it returns.
func run(args []string, stdin io.Reader, stdout io.Writer) (status int) {
	var compile string
	var save string
	var input string
	var output string
	var verbose bool

	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	flags.StringVar(&compile, "c", "", ".uma file to assemble")
	flags.StringVar(&save, "s", "", "Save image to file, do not execute")
	flags.StringVar(&input, "i", "-", "Tape input (- for stdin, which is empty when the image is read from stdin)")
	flags.StringVar(&output, "o", "-", "Tape output (- for stdout)")
	flags.BoolVar(&verbose, "v", false, "Verbose mode")

	err := flags.Parse(args[1:])
	if err != nil {
		return emulator.EXIT_HOST
	}

	if flags.NArg() > 1 || (flags.NArg() == 1 && len(compile) != 0) {
		log.Printf("%v: Unknown arguments: %v", args[0], flags.Args())
		return emulator.EXIT_HOST
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	image_stdin := false
	if len(compile) != 0 {
		// Assemble a new program image.
		inf, err := os.Open(compile)
		if err != nil {
			log.Printf("%v: %v", compile, err)
			return emulator.EXIT_HOST
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Printf("%v: %v", compile, err)
			return emulator.EXIT_HOST
		}
		emu.Rom.Data = emu.Program.Binary()
	} else {
		// Load a program image.
		image := "-"
		var inf io.Reader = stdin
		if flags.NArg() == 1 && flags.Arg(0) != "-" {
			image = flags.Arg(0)
			file, err := os.Open(image)
			if err != nil {
				log.Printf("%v: %v", image, err)
				return emulator.EXIT_HOST
			}
			defer file.Close()
			inf = file
		} else {
			image_stdin = true
		}

		_, err := emu.Rom.ReadFrom(inf)
		if err != nil {
			log.Printf("%v: %v", image, err)
			return emulator.ExitStatus(err)
		}
	}

	if len(save) != 0 {
		ouf, err := os.Create(save)
		if err != nil {
			log.Printf("%v: %v", save, err)
			return emulator.EXIT_HOST
		}
		_, err = emu.Rom.WriteTo(ouf)
		cerr := ouf.Close()
		if err == nil {
			err = cerr
		}
		if err != nil {
			log.Printf("%v: %v", save, err)
			return emulator.EXIT_HOST
		}
		return emulator.EXIT_HALT
	}

	switch {
	case input == "-" && image_stdin:
		// The image consumed stdin; the tape starts at end of stream.
		emu.Tape.Input = nil
	case input == "-":
		emu.Tape.Input = stdin
	default:
		inf, err := os.Open(input)
		if err != nil {
			log.Printf("%v: %v", input, err)
			return emulator.EXIT_HOST
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	if output == "-" {
		emu.Tape.Output = stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Printf("%v: %v", output, err)
			return emulator.EXIT_HOST
		}
		defer func() {
			err := ouf.Close()
			if err != nil && status == emulator.EXIT_HALT {
				log.Printf("%v: %v", output, err)
				status = emulator.EXIT_HOST
			}
		}()
		emu.Tape.Output = ouf
	}

	err = emu.Reset()
	if err == nil {
		err = emu.Run()
	}
	if err != nil {
		log.Print(err)
		if verbose {
			log.Printf("\n%v", emu.Cpu.String())
		}
	}

	return emulator.ExitStatus(err)
}
