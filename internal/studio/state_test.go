package studio

import (
	"errors"
	"testing"

	"anime-thumbnail-studio/internal/thumbnail"
)

func TestNextTransitionTable(t *testing.T) {
	img := thumbnail.Image{Bytes: []byte("jpeg"), MIMEType: "image/jpeg"}
	loaded := State{Status: Loaded, Image: &img}
	errored := State{Status: Errored, Err: thumbnail.ErrNoImageReturned, Message: "none"}
	remote := &thumbnail.RemoteError{Message: "quota exceeded"}

	tests := []struct {
		name    string
		from    State
		event   Event
		want    Status
		wantErr bool
	}{
		{name: "idle start", from: State{}, event: Started{}, want: Loading},
		{name: "loaded start", from: loaded, event: Started{}, want: Loading},
		{name: "errored start", from: errored, event: Started{}, want: Loading},
		{name: "idle rejected", from: State{}, event: Rejected{Err: thumbnail.ErrEmptyTitle}, want: Errored},
		{name: "loaded rejected", from: loaded, event: Rejected{Err: thumbnail.ErrEmptyTitle}, want: Errored},
		{name: "loading succeeded", from: State{Status: Loading}, event: Succeeded{Image: img}, want: Loaded},
		{name: "loading failed", from: State{Status: Loading}, event: Failed{Err: remote}, want: Errored},
		{name: "loading start again", from: State{Status: Loading}, event: Started{}, wantErr: true},
		{name: "loading rejected", from: State{Status: Loading}, event: Rejected{}, wantErr: true},
		{name: "idle succeeded", from: State{}, event: Succeeded{Image: img}, wantErr: true},
		{name: "loaded failed", from: loaded, event: Failed{}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Next(tc.from, tc.event)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("Next() error = %v, want ErrInvalidTransition", err)
				}
				if got.Status != tc.from.Status {
					t.Fatalf("Next() changed state on invalid transition: %s", got.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if got.Status != tc.want {
				t.Fatalf("Next() status = %s, want %s", got.Status, tc.want)
			}
			if got.Status != Loaded && got.Image != nil {
				t.Fatalf("Next() kept an image in %s", got.Status)
			}
		})
	}
}

func TestNextCarriesPayload(t *testing.T) {
	img := thumbnail.Image{Bytes: []byte{1, 2, 3}}
	got, err := Next(State{Status: Loading}, Succeeded{Image: img})
	if err != nil {
		t.Fatal(err)
	}
	if got.Image == nil || string(got.Image.Bytes) != string(img.Bytes) {
		t.Fatalf("Loaded image = %+v", got.Image)
	}

	got, err = Next(State{Status: Loading}, Failed{Err: thumbnail.ErrNoImageReturned, Message: "nothing"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Message != "nothing" || !errors.Is(got.Err, thumbnail.ErrNoImageReturned) {
		t.Fatalf("Errored state = %+v", got)
	}
}

func TestRenderPerState(t *testing.T) {
	img := thumbnail.Image{Bytes: []byte{0xff, 0xd8}}
	msgs := MessagesFor()

	tests := []struct {
		name         string
		state        State
		title        string
		wantDisplay  DisplayKind
		wantInputs   bool
		wantGenerate bool
		wantDownload bool
		wantLabel    string
	}{
		{name: "idle empty title", state: State{}, title: " ", wantDisplay: DisplayPlaceholder, wantInputs: true, wantLabel: msgs.GenerateLabel},
		{name: "idle with title", state: State{}, title: "Hero", wantDisplay: DisplayPlaceholder, wantInputs: true, wantGenerate: true, wantLabel: msgs.GenerateLabel},
		{name: "loading", state: State{Status: Loading}, title: "Hero", wantDisplay: DisplaySpinner, wantLabel: msgs.GeneratingLabel},
		{name: "loaded", state: State{Status: Loaded, Image: &img}, title: "Hero", wantDisplay: DisplayImage, wantInputs: true, wantGenerate: true, wantDownload: true, wantLabel: msgs.GenerateLabel},
		{name: "errored", state: State{Status: Errored, Message: "quota exceeded"}, title: "Hero", wantDisplay: DisplayError, wantInputs: true, wantGenerate: true, wantLabel: msgs.GenerateLabel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Render(tc.state, tc.title, thumbnail.DefaultStyleKey, msgs, nil)
			if v.Display.Kind != tc.wantDisplay {
				t.Errorf("display = %s, want %s", v.Display.Kind, tc.wantDisplay)
			}
			if v.TitleIn.Enabled != tc.wantInputs || v.StyleIn.Enabled != tc.wantInputs {
				t.Errorf("inputs enabled = %v/%v, want %v", v.TitleIn.Enabled, v.StyleIn.Enabled, tc.wantInputs)
			}
			if v.Generate.Enabled != tc.wantGenerate {
				t.Errorf("generate enabled = %v, want %v", v.Generate.Enabled, tc.wantGenerate)
			}
			if v.Download.Enabled != tc.wantDownload {
				t.Errorf("download enabled = %v, want %v", v.Download.Enabled, tc.wantDownload)
			}
			if v.Generate.Label != tc.wantLabel {
				t.Errorf("generate label = %q, want %q", v.Generate.Label, tc.wantLabel)
			}
		})
	}
}

func TestRenderDetails(t *testing.T) {
	img := thumbnail.Image{Bytes: []byte{0xff, 0xd8}}
	msgs := MessagesFor()

	v := Render(State{Status: Loaded, Image: &img}, "My Video! #1", "パンク", msgs, func(thumbnail.Image) string { return "/api/image?v=3" })
	if v.Display.ImageURL != "/api/image?v=3" {
		t.Errorf("image url = %q", v.Display.ImageURL)
	}
	if v.Filename != "サムネイル_my_video___1.jpg" {
		t.Errorf("filename = %q", v.Filename)
	}
	selected := 0
	for _, s := range v.Styles {
		if s.Selected {
			selected++
			if s.Key != "パンク" {
				t.Errorf("selected style = %q", s.Key)
			}
		}
	}
	if selected != 1 {
		t.Errorf("selected styles = %d, want 1", selected)
	}

	v = Render(State{Status: Loaded, Image: &img}, "x", "パンク", msgs, nil)
	if v.Display.ImageURL != img.DataURL() {
		t.Errorf("default image url = %q", v.Display.ImageURL)
	}

	v = Render(State{Status: Errored, Message: "quota exceeded"}, "x", "パンク", msgs, nil)
	if v.Display.Text != "quota exceeded" || v.Display.Heading != msgs.ErrorHeading {
		t.Errorf("error display = %+v", v.Display)
	}
}
