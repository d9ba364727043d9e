package transcode

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qsync/qsync/internal/types"
)

const resNetworks = "networks"

var descriptionPattern = regexp.MustCompile(`^(<\d+>)?\s*(\[Critical VLAN\])?\s*(\[Wireless\])?\s*(.*)$`)

// Description is the structure packed into a network's free-text
// description: "<vlan>[Critical VLAN][Wireless]address".
type Description struct {
	VLAN     string
	Critical bool
	Wireless bool
	Address  string
}

// ParseDescription splits a description into its tags. ok is false when the
// text does not match the grammar; the zero Description is returned then.
func ParseDescription(s string) (Description, bool) {
	m := descriptionPattern.FindStringSubmatch(s)
	if m == nil {
		return Description{}, false
	}
	d := Description{
		Critical: m[2] != "",
		Wireless: m[3] != "",
		Address:  m[4],
	}
	if m[1] != "" {
		d.VLAN = m[1][1 : len(m[1])-1]
	}
	return d, true
}

// IsZero reports whether no tag is set.
func (d Description) IsZero() bool {
	return d.VLAN == "" && !d.Critical && !d.Wireless && d.Address == ""
}

func (d Description) String() string {
	var b strings.Builder
	if d.VLAN != "" {
		b.WriteString("<" + d.VLAN + ">")
	}
	if d.Critical {
		b.WriteString("[Critical VLAN]")
	}
	if d.Wireless {
		b.WriteString("[Wireless]")
	}
	b.WriteString(d.Address)
	return b.String()
}

type nativeNetwork struct {
	ID          any `json:"id"`
	Name        any `json:"name"`
	CIDR        any `json:"cidr"`
	CountryCode any `json:"country_code"`
	Group       any `json:"group"`
	Description any `json:"description"`
	Location    *struct {
		Coordinates []any `json:"coordinates"`
	} `json:"location"`
}

func orEmpty(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// DecodeNetworks flattens a network hierarchy listing into records holding
// exactly fields, in that order.
func DecodeNetworks(body []byte, fields []string) (types.Buffer, error) {
	var natives []nativeNetwork
	if err := unmarshal(body, &natives); err != nil {
		return nil, &Error{Resource: resNetworks, Record: -1, Err: fmt.Errorf("decode networks: %w", err)}
	}
	buf := make(types.Buffer, 0, len(natives))
	for _, n := range natives {
		var x, y any = 0, 0
		if n.Location != nil && len(n.Location.Coordinates) >= 2 {
			x, y = n.Location.Coordinates[0], n.Location.Coordinates[1]
		}
		// a description that does not fit the grammar leaves the tags empty
		desc, _ := ParseDescription(types.Text(n.Description))

		rec := types.NewRecord()
		for _, f := range fields {
			switch f {
			case "id":
				rec.Set(f, orEmpty(n.ID))
			case "name":
				rec.Set(f, orEmpty(n.Name))
			case "cidr":
				rec.Set(f, orEmpty(n.CIDR))
			case "country_code":
				rec.Set(f, orEmpty(n.CountryCode))
			case "group":
				rec.Set(f, orEmpty(n.Group))
			case "description":
				rec.Set(f, orEmpty(n.Description))
			case "coord_x":
				rec.Set(f, x)
			case "coord_y":
				rec.Set(f, y)
			case "vlan":
				rec.Set(f, desc.VLAN)
			case "critical":
				rec.Set(f, flag(desc.Critical))
			case "wireless":
				rec.Set(f, flag(desc.Wireless))
			case "address":
				rec.Set(f, desc.Address)
			}
		}
		buf = append(buf, rec)
	}
	return buf, nil
}

type location struct {
	Coordinates [2]float64 `json:"coordinates"`
	Type        string     `json:"type"`
}

// EncodeNetworks builds the staged network hierarchy document: a JSON array
// with one object per record.
func EncodeNetworks(buf types.Buffer) ([]byte, error) {
	out := make([]*types.Record, 0, len(buf))
	for i, rec := range buf {
		n, err := encodeNetwork(i, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return json.Marshal(out)
}

func encodeNetwork(i int, rec *types.Record) (*types.Record, error) {
	idText := strings.TrimSpace(rec.Text("id"))
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		return nil, &Error{Resource: resNetworks, Record: i, Field: "id", Value: idText, Err: fmt.Errorf("network id must be an integer")}
	}
	n := types.NewRecord()
	n.Set("id", id)
	n.Set("name", rec.Text("name"))
	n.Set("cidr", rec.Text("cidr"))
	if cc := rec.Text("country_code"); cc != "" {
		n.Set("country_code", cc)
	}
	n.Set("group", rec.Text("group"))

	cx, cy := strings.TrimSpace(rec.Text("coord_x")), strings.TrimSpace(rec.Text("coord_y"))
	if cx != "" && cy != "" && cx != "0" && cy != "0" {
		var loc location
		for j, c := range []struct{ field, text string }{{"coord_x", cx}, {"coord_y", cy}} {
			v, err := strconv.ParseFloat(c.text, 64)
			if err != nil {
				return nil, &Error{Resource: resNetworks, Record: i, Field: c.field, Value: c.text, Err: err}
			}
			loc.Coordinates[j] = v
		}
		loc.Type = "Point"
		n.Set("location", loc)
	}

	description := rec.Text("description")
	if description == "" {
		d := Description{
			VLAN:     rec.Text("vlan"),
			Critical: types.Truthy(mustGet(rec, "critical")),
			Wireless: types.Truthy(mustGet(rec, "wireless")),
			Address:  rec.Text("address"),
		}
		if !d.IsZero() {
			description = d.String()
		}
	}
	n.Set("description", description)
	return n, nil
}

func mustGet(rec *types.Record, k string) any {
	v, _ := rec.Get(k)
	return v
}
