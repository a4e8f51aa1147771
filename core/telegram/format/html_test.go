package format

import "testing"

func TestEscapeHTML(t *testing.T) {
	got := EscapeHTML(`Tom & <Jerry> "Ltd"`)
	want := `Tom &amp; &lt;Jerry&gt; "Ltd"`
	if got != want {
		t.Fatalf("EscapeHTML = %q, want %q", got, want)
	}
}

func TestHeadingAndFields(t *testing.T) {
	got := Lines(Heading("Vehicle Data"), Field("Make", "A&B"), "", Field("Model", "X<1>"))
	want := "<b><u>Vehicle Data</u></b>\nMake: A&amp;B\nModel: X&lt;1&gt;"
	if got != want {
		t.Fatalf("message = %q, want %q", got, want)
	}
}
