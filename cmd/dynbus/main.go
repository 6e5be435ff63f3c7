package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/danderson/dynbus"
	"github.com/danderson/dynbus/fragments"
	"github.com/danderson/dynbus/internal/hostval"
	"github.com/kr/pretty"
)

var globalArgs struct {
	Order  string `flag:"order,Byte order for encoding: big, little or native (default)"`
	Format string `flag:"format,Host value format: yaml (default) or msgpack"`
}

var encodeArgs struct {
	Sig  string `flag:"sig,Signature to encode against (default: inferred)"`
	Raw  bool   `flag:"raw,Write raw bytes instead of hex"`
	Body bool   `flag:"body,Write an unframed message body"`
}

var decodeArgs struct {
	Raw    bool   `flag:"raw,Read raw bytes instead of hex"`
	Sig    string `flag:"sig,Signature of an unframed message body (implies --body)"`
	Pretty bool   `flag:"pretty,Pretty-print decoded values as Go data"`
}

func main() {
	root := &command.C{
		Name:     "dynbus",
		Usage:    "command args...",
		Help:     "Convert dynamically typed values to and from the DBus wire format.",
		SetFlags: command.Flags(flax.MustBind, &globalArgs),
		Commands: []*command.C{
			{
				Name:  "encode",
				Usage: "encode [file]",
				Help: `Encode host values to DBus wire format.

Values are read from file, or stdin if no file is given, in the format
selected by --format. A YAML document that is a sequence provides one
value per element. YAML values can be given explicit wire types with
local tags such as !int64, !objpath or !variant.

The output is a framed encoding that records its byte order and
signature, unless --body is given.`,
				SetFlags: command.Flags(flax.MustBind, &encodeArgs),
				Run:      runEncode,
			},
			{
				Name:  "decode",
				Usage: "decode [file]",
				Help: `Decode DBus wire format to host values.

Input is hex (whitespace is ignored) unless --raw is given. Framed
input produced by encode is self-describing. Unframed message bodies
need --sig.`,
				SetFlags: command.Flags(flax.MustBind, &decodeArgs),
				Run:      runDecode,
			},
			{
				Name:  "signature",
				Usage: "signature [file]",
				Help:  "Print the signature inferred for host values.",
				Run:   runSignature,
			},
			{
				Name:  "classify",
				Usage: "classify [file]",
				Help:  "Print the wire type inferred for each host value.",
				Run:   runClassify,
			},
			{
				Name:  "check",
				Usage: "check signature",
				Help:  "Check that a signature is valid, and list its complete types.",
				Run:   command.Adapt(runCheck),
			},
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	env := root.NewEnv(nil).SetContext(ctx)
	command.RunOrFail(env, os.Args[1:])
}

func codec() (dynbus.Codec, error) {
	ord, err := fragments.ParseOrder(globalArgs.Order)
	if err != nil {
		return dynbus.Codec{}, err
	}
	return dynbus.Codec{Order: ord}, nil
}

func runEncode(env *command.Env) error {
	vs, err := readValues(env.Args)
	if err != nil {
		return err
	}
	c, err := codec()
	if err != nil {
		return err
	}
	sig, err := dynbus.ParseSignature(encodeArgs.Sig)
	if err != nil {
		return err
	}

	var out []byte
	if encodeArgs.Body {
		sig, out, err = c.MarshalBody(env.Context(), sig, vs...)
		if err == nil {
			fmt.Fprintf(os.Stderr, "signature: %q\n", sig)
		}
	} else {
		out, err = c.Encode(env.Context(), sig, vs...)
	}
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	if encodeArgs.Raw {
		_, err = os.Stdout.Write(out)
		return err
	}
	fmt.Println(hex.EncodeToString(out))
	return nil
}

func runDecode(env *command.Env) error {
	in, err := readInput(env.Args)
	if err != nil {
		return err
	}
	if !decodeArgs.Raw {
		if in, err = hex.DecodeString(strings.Join(strings.Fields(string(in)), "")); err != nil {
			return fmt.Errorf("decoding hex input: %w", err)
		}
	}

	var vs []dynbus.Value
	if decodeArgs.Sig != "" {
		c, err := codec()
		if err != nil {
			return err
		}
		vs, err = c.UnmarshalBody(env.Context(), dynbus.Signature(decodeArgs.Sig), in)
		if err != nil {
			return fmt.Errorf("decoding: %w", err)
		}
	} else {
		var sig dynbus.Signature
		sig, vs, err = dynbus.Decode(env.Context(), in)
		if err != nil {
			return fmt.Errorf("decoding: %w", err)
		}
		fmt.Fprintf(os.Stderr, "signature: %q\n", sig)
	}
	return writeValues(vs)
}

func runSignature(env *command.Env) error {
	vs, err := readValues(env.Args)
	if err != nil {
		return err
	}
	sig, err := dynbus.SignatureOf(vs...)
	if err != nil {
		return err
	}
	fmt.Println(sig)
	return nil
}

func runClassify(env *command.Env) error {
	vs, err := readValues(env.Args)
	if err != nil {
		return err
	}
	for i, v := range vs {
		t, err := dynbus.Classify(v)
		if err != nil {
			fmt.Printf("%d: %v\n", i, err)
			continue
		}
		fmt.Printf("%d: %s\n", i, t)
	}
	return nil
}

func runCheck(env *command.Env, sig string) error {
	s, err := dynbus.ParseSignature(sig)
	if err != nil {
		return err
	}
	for _, t := range s.Types() {
		fmt.Println(t)
	}
	return nil
}

func writeValues(vs []dynbus.Value) error {
	if decodeArgs.Pretty {
		for _, v := range vs {
			fmt.Printf("%# v\n", pretty.Formatter(dynbus.ToAny(v)))
		}
		return nil
	}
	var (
		out []byte
		err error
	)
	switch globalArgs.Format {
	case "", "yaml":
		out, err = hostval.ToYAML(vs)
	case "msgpack":
		out, err = hostval.ToMsgpack(vs)
	default:
		return fmt.Errorf("unknown format %q", globalArgs.Format)
	}
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}
