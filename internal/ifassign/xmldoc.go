package ifassign

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// node is a generic XML element tree. The configuration document carries
// hundreds of sections this tool knows nothing about; they round-trip
// through here untouched.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []*node    `xml:",any"`
}

func parseDoc(data []byte) (*node, error) {
	var root node
	if err := xml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse configuration document: %w", err)
	}
	normalize(&root)
	return &root, nil
}

// normalize drops whitespace-only chardata on container elements so the
// serialized document indents cleanly.
func normalize(n *node) {
	if len(n.Children) > 0 && strings.TrimSpace(n.Text) == "" {
		n.Text = ""
	}
	for _, c := range n.Children {
		normalize(c)
	}
}

func serializeDoc(root *node) ([]byte, error) {
	body, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize configuration document: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

func findChild(n *node, name string) *node {
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			return c
		}
	}
	return nil
}

func childText(n *node, name string) string {
	c := findChild(n, name)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text)
}

var slotNamePattern = regexp.MustCompile(`^opt(\d+)$`)

// assignments returns the device → slot relation present in the interfaces
// section. Every child element is a slot; its <if> child names the device.
func assignments(interfaces *node) map[string]string {
	out := make(map[string]string)
	for _, slot := range interfaces.Children {
		if dev := childText(slot, "if"); dev != "" {
			out[dev] = slot.XMLName.Local
		}
	}
	return out
}

// usedSlotNumbers returns the optN numbers ever allocated in the document.
// Slots keep their numbers for life; external references depend on it.
func usedSlotNumbers(interfaces *node) map[int]bool {
	used := make(map[int]bool)
	for _, slot := range interfaces.Children {
		if m := slotNamePattern.FindStringSubmatch(slot.XMLName.Local); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				used[n] = true
			}
		}
	}
	return used
}

// addSlot appends an enabled slot assignment for dev.
func addSlot(interfaces *node, slotName, dev, description string) {
	interfaces.Children = append(interfaces.Children, &node{
		XMLName: xml.Name{Local: slotName},
		Children: []*node{
			{XMLName: xml.Name{Local: "if"}, Text: dev},
			{XMLName: xml.Name{Local: "descr"}, Text: description},
			{XMLName: xml.Name{Local: "enable"}, Text: "1"},
		},
	})
}
