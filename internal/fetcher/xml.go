package fetcher

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// EachXML decodes every element with the given local name into T and hands it
// to fn, in document order. Decoding stops at the first error from the
// reader, the decoder, fn, or ctx.
func EachXML[T any](ctx context.Context, r io.Reader, elementName string, fn func(T) error) error {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	for {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "xml: context cancelled")
		}

		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "xml: read token")
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if se.Name.Local != elementName {
			continue
		}

		var item T
		if err := decoder.DecodeElement(&item, &se); err != nil {
			return eris.Wrapf(err, "xml: decode <%s>", elementName)
		}

		if err := fn(item); err != nil {
			return err
		}
	}
}
