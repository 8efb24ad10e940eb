package feed

// placeElement is one <place> of the places feed:
//
//	<place place_id="11703">
//	  <name>ESTACION LA PAZ</name>
//	  <cre_id>PL/658/EXP/ES/2015</cre_id>
//	  <location><x>-116.92</x><y>32.47</y></location>
//	</place>
type placeElement struct {
	PlaceID string `xml:"place_id,attr"`
	Name    string `xml:"name"`
	CreID   string `xml:"cre_id"`
	X       string `xml:"location>x"`
	Y       string `xml:"location>y"`
}

// priceElement is one <place> of the prices feed. encoding/xml appends each
// <gas_price> to the slice, so a single entry still decodes as a one-element
// list.
type priceElement struct {
	PlaceID   string            `xml:"place_id,attr"`
	GasPrices []gasPriceElement `xml:"gas_price"`
}

type gasPriceElement struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}
