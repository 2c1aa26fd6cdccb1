package mockbrowser

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

var states = []string{
	"Delhi",
	"Maharashtra",
	"Karnataka",
	"Tamil Nadu",
	"Gujarat",
	"Rajasthan",
	"Uttar Pradesh",
	"West Bengal",
	"Andhra Pradesh",
	"Telangana",
}

var delhiComplexes = []string{
	"Patiala House Court Complex",
	"Karkardooma Court Complex",
	"Rohini Court Complex",
	"Saket Court Complex",
	"Dwarka Court Complex",
	"Rouse Avenue Court Complex",
}

// JudgesPerComplex is the number of judges every mock court complex lists.
const JudgesPerComplex = 5

// IdleJudge is the judge number whose cause lists are always empty.
const IdleJudge = 5

func districtsOf(state string) []string {
	switch strings.ToLower(state) {
	case "delhi":
		return []string{"Delhi"}
	case "maharashtra":
		return []string{"Mumbai", "Pune", "Nagpur", "Nashik"}
	case "karnataka":
		return []string{"Bangalore", "Mysore", "Hubli", "Mangalore"}
	default:
		return []string{state + " District 1", state + " District 2", state + " District 3"}
	}
}

func complexesOf(state, district string) []string {
	if strings.EqualFold(state, "delhi") {
		return delhiComplexes
	}
	return []string{
		district + " District Court Complex",
		district + " Sessions Court Complex",
		district + " Civil Court Complex",
	}
}

// JudgeNodes lists the judges of one court complex.
func JudgeNodes(complex string) []Node {
	nodes := make([]Node, 0, JudgesPerComplex)
	for i := 1; i <= JudgesPerComplex; i++ {
		nodes = append(nodes, Node{
			Label: fmt.Sprintf("Hon'ble Judge %d - %s", i, complex),
			Value: strconv.Itoa(i),
		})
	}
	return nodes
}

// DefaultTree is the state → district → court complex → judge hierarchy of
// the mock data set. Option values are positional codes like the live site's.
func DefaultTree() []Node {
	tree := make([]Node, 0, len(states))
	for si, state := range states {
		stateNode := Node{Label: state, Value: strconv.Itoa(si + 1)}
		for di, district := range districtsOf(state) {
			districtNode := Node{Label: district, Value: strconv.Itoa(di + 1)}
			for ci, complex := range complexesOf(state, district) {
				districtNode.Children = append(districtNode.Children, Node{
					Label:    complex,
					Value:    strconv.Itoa(ci + 1),
					Children: JudgeNodes(complex),
				})
			}
			stateNode.Children = append(stateNode.Children, districtNode)
		}
		tree = append(tree, stateNode)
	}
	return tree
}

// DefaultResults renders ten hearings per judge: even numbers are civil,
// odd numbers criminal. The idle judge has none.
func DefaultResults(q Query) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="banner"><tr><td>Cause List</td></tr></table>`)

	judge := 0
	if len(q.Path) > 0 {
		judge, _ = strconv.Atoi(q.Path[len(q.Path)-1].Value)
	}

	b.WriteString(`<table id="dispTable"><thead><tr>`)
	for _, h := range []string{"Sr No", "Case Number", "Case Title", "Petitioner", "Respondent", "Advocate", "Case Type", "Stage", "Purpose"} {
		fmt.Fprintf(&b, "<th>%s</th>", h)
	}
	b.WriteString(`</tr></thead><tbody>`)

	if judge != IdleJudge {
		fmt.Fprintf(&b, `<tr><td colspan="9">%s</td></tr>`, html.EscapeString(q.Date))
		for i := 1; i <= 10; i++ {
			kind := "Criminal"
			if i%2 == 0 {
				kind = "Civil"
			}
			if q.CaseType != "" && q.CaseType != "both" && !strings.EqualFold(kind, q.CaseType) {
				continue
			}
			cells := []string{
				strconv.Itoa(i),
				fmt.Sprintf("CC/%03d/2024", i),
				fmt.Sprintf("Sample Case %d vs State", i),
				fmt.Sprintf("Petitioner %d", i),
				fmt.Sprintf("Respondent %d", i),
				fmt.Sprintf("Advocate %d", i),
				kind,
				"Arguments",
				"Hearing",
			}
			b.WriteString("<tr>")
			for _, c := range cells {
				fmt.Fprintf(&b, "<td>%s</td>", html.EscapeString(c))
			}
			b.WriteString("</tr>")
		}
	}

	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}
