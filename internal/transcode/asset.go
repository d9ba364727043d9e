package transcode

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qsync/qsync/internal/types"
)

const resAssets = "assets"

// NoIP is the IP cell of an asset without a usable address.
const NoIP = "none"

// Property is one entry of the asset properties catalog.
type Property struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

// Catalog lists the asset properties known to the server, in server order.
type Catalog []Property

// DecodeCatalog reads the asset_model/properties listing.
func DecodeCatalog(body []byte) (Catalog, error) {
	var c Catalog
	if err := unmarshal(body, &c); err != nil {
		return nil, &Error{Resource: resAssets, Record: -1, Err: fmt.Errorf("decode asset properties: %w", err)}
	}
	return c, nil
}

// Names returns the property names in catalog order.
func (c Catalog) Names() []string {
	out := make([]string, 0, len(c))
	for _, p := range c {
		out = append(out, p.Name)
	}
	return out
}

// Lookup finds a property by name.
func (c Catalog) Lookup(name string) (Property, bool) {
	for _, p := range c {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

type nativeAsset struct {
	ID         any `json:"id"`
	Interfaces []struct {
		IPAddresses []struct {
			Value string `json:"value"`
		} `json:"ip_addresses"`
	} `json:"interfaces"`
	Properties []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"properties"`
}

// FirstIP returns the first address that is neither loopback (127.*) nor an
// IPv6 literal (leading ':'), or NoIP.
func FirstIP(addrs []string) string {
	for _, a := range addrs {
		if a == "" || strings.HasPrefix(a, "127.") || strings.HasPrefix(a, ":") {
			continue
		}
		return a
	}
	return NoIP
}

// DecodeAssets flattens an asset listing. Fields that are neither id, IP nor
// a catalog property are dropped.
func DecodeAssets(body []byte, fields []string, catalog Catalog) (types.Buffer, error) {
	var natives []nativeAsset
	if err := unmarshal(body, &natives); err != nil {
		return nil, &Error{Resource: resAssets, Record: -1, Err: fmt.Errorf("decode assets: %w", err)}
	}
	buf := make(types.Buffer, 0, len(natives))
	for _, a := range natives {
		var addrs []string
		for _, iface := range a.Interfaces {
			for _, ip := range iface.IPAddresses {
				addrs = append(addrs, ip.Value)
			}
		}
		props := make(map[string]any, len(a.Properties))
		for _, p := range a.Properties {
			props[p.Name] = p.Value
		}

		rec := types.NewRecord()
		for _, f := range fields {
			switch f {
			case "id":
				rec.Set(f, orEmpty(a.ID))
			case "IP":
				rec.Set(f, FirstIP(addrs))
			default:
				if _, ok := catalog.Lookup(f); !ok {
					continue
				}
				rec.Set(f, orEmpty(props[f]))
			}
		}
		buf = append(buf, rec)
	}
	return buf, nil
}

// PropertyValue is one property assignment in an asset update.
type PropertyValue struct {
	TypeID json.Number `json:"type_id"`
	Value  string      `json:"value"`
}

// AssetUpdate is the write form of one asset. ID goes into the request path,
// Properties into the body.
type AssetUpdate struct {
	ID         string          `json:"-"`
	Properties []PropertyValue `json:"properties"`
}

// Body returns the JSON request body.
func (u AssetUpdate) Body() ([]byte, error) {
	return json.Marshal(u)
}

// EncodeAssets converts records into property updates in catalog order.
// Empty values and fields unknown to the catalog are left out.
func EncodeAssets(buf types.Buffer, catalog Catalog) ([]AssetUpdate, error) {
	out := make([]AssetUpdate, 0, len(buf))
	for i, rec := range buf {
		id := strings.TrimSpace(rec.Text("id"))
		if id == "" {
			return nil, &Error{Resource: resAssets, Record: i, Field: "id", Err: fmt.Errorf("asset id is required")}
		}
		u := AssetUpdate{ID: id, Properties: []PropertyValue{}}
		for _, p := range catalog {
			v := rec.Text(p.Name)
			if v == "" {
				continue
			}
			u.Properties = append(u.Properties, PropertyValue{TypeID: p.ID, Value: v})
		}
		out = append(out, u)
	}
	return out, nil
}
