package status

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Anchors of the adapter's voice status table.
const (
	SectionLine1      = "Line 1 Status"
	SectionLine2      = "Line 2 Status"
	LabelRegistration = "Registration State:"
	LabelHook         = "Hook State:"
)

// ParseError reports a status page whose layout was not recognized
type ParseError struct {
	Section string
	Label   string
	Reason  string
}

func (e *ParseError) Error() string {
	switch {
	case e.Label != "":
		return fmt.Sprintf("status page: %q has no %q field", e.Section, e.Label)
	case e.Section != "":
		return fmt.Sprintf("status page: section %q not found", e.Section)
	default:
		return "status page: " + e.Reason
	}
}

// Parse extracts the registration and hook state of both lines from the
// rendered voice status content.
//
// The content is a table in which a single-cell row opens a section and a
// cell aligned left holds a label whose value is the following cell.
func Parse(content string) (DeviceStatus, error) {
	// Rows outside a table element are dropped by the HTML parser, so a bare
	// inner-HTML capture is wrapped first.
	if !strings.Contains(strings.ToLower(content), "<table") {
		content = "<table>" + content + "</table>"
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return DeviceStatus{}, &ParseError{Reason: fmt.Sprintf("invalid HTML: %v", err)}
	}

	sections := extractSections(doc)
	if len(sections) == 0 {
		return DeviceStatus{}, &ParseError{Reason: "no status table found"}
	}

	line1, err := parseLine(sections, SectionLine1)
	if err != nil {
		return DeviceStatus{}, err
	}
	line2, err := parseLine(sections, SectionLine2)
	if err != nil {
		return DeviceStatus{}, err
	}

	return DeviceStatus{Line1: line1, Line2: line2}, nil
}

// extractSections walks the table rows and groups label/value pairs under
// their section heading. The first occurrence of a section or label wins.
func extractSections(doc *goquery.Document) map[string]map[string]string {
	sections := make(map[string]map[string]string)
	current := ""

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		if cells.Length() == 1 {
			if key := cleanText(cells.First().Text()); key != "" {
				current = key
				if _, ok := sections[current]; !ok {
					sections[current] = make(map[string]string)
				}
			}
			return
		}
		if current == "" {
			return
		}

		fields := sections[current]
		cells.Each(func(i int, cell *goquery.Selection) {
			if align, _ := cell.Attr("align"); !strings.EqualFold(align, "left") {
				return
			}
			label := cleanText(cell.Text())
			if label == "" {
				return
			}
			if _, seen := fields[label]; seen {
				return
			}
			value := ""
			if i+1 < cells.Length() {
				value = cleanText(cells.Eq(i + 1).Text())
			}
			fields[label] = value
		})
	})

	return sections
}

func parseLine(sections map[string]map[string]string, section string) (LineStatus, error) {
	fields, ok := sections[section]
	if !ok {
		return LineStatus{}, &ParseError{Section: section}
	}

	registration, ok := fields[LabelRegistration]
	if !ok {
		return LineStatus{}, &ParseError{Section: section, Label: LabelRegistration}
	}
	hook, ok := fields[LabelHook]
	if !ok {
		return LineStatus{}, &ParseError{Section: section, Label: LabelHook}
	}

	return LineStatus{
		Registration: ParseRegistration(registration),
		Hook:         ParseHook(hook),
	}, nil
}

// ParseRegistration maps the adapter's registration text to a state
func ParseRegistration(text string) RegistrationState {
	switch strings.ToLower(cleanText(text)) {
	case "registered":
		return RegistrationRegistered
	case "failed", "not registered", "unregistered", "registration failed":
		return RegistrationFailed
	default:
		return RegistrationUnknown
	}
}

// ParseHook maps the adapter's hook text to a state
func ParseHook(text string) HookState {
	switch strings.ToLower(cleanText(text)) {
	case "on", "on hook", "on-hook", "idle":
		return HookOn
	case "off", "off hook", "off-hook":
		return HookOff
	default:
		return HookUnknown
	}
}

// cleanText trims the cell text and collapses inner whitespace, including
// the non-breaking spaces the adapter pads its cells with.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
