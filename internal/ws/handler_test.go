package ws

import (
	"testing"

	"github.com/kai9kono/Kuiz/internal/engine"
	"github.com/kai9kono/Kuiz/pkg/types"
)

func TestToCommand(t *testing.T) {
	cases := []struct {
		name     string
		in       types.ClientMessage
		wantType engine.CommandType
		wantOK   bool
	}{
		{"buzz", types.ClientMessage{Type: types.MsgBuzz}, engine.CmdBuzz, true},
		{"submit answer", types.ClientMessage{Type: types.MsgSubmitAnswer, Text: "Tokyo"}, engine.CmdSubmitAnswer, true},
		{"start game", types.ClientMessage{Type: types.MsgStartGame}, engine.CmdStartGame, true},
		{"unknown type", types.ClientMessage{Type: "Dance"}, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := toCommand(tc.in)
			if ok != tc.wantOK {
				t.Fatalf("want ok=%v, got %v", tc.wantOK, ok)
			}
			if ok && cmd.Type != tc.wantType {
				t.Fatalf("want %s, got %s", tc.wantType, cmd.Type)
			}
		})
	}
}

func TestToCommand_StartGameSettings(t *testing.T) {
	cmd, ok := toCommand(types.ClientMessage{
		Type:        types.MsgStartGame,
		PointsToWin: 7,
	})
	if !ok {
		t.Fatalf("start game must translate")
	}
	if cmd.Settings.PointsToWin != 7 {
		t.Fatalf("explicit points-to-win must carry over, got %d", cmd.Settings.PointsToWin)
	}
	if cmd.Settings.MaxMistakes != engine.DefaultMaxMistakes {
		t.Fatalf("unset fields must fall back to defaults, got %d", cmd.Settings.MaxMistakes)
	}
	if cmd.Settings.NumQuestions != engine.DefaultNumQuestions {
		t.Fatalf("unset fields must fall back to defaults, got %d", cmd.Settings.NumQuestions)
	}
}

func TestToCommand_SubmitCarriesText(t *testing.T) {
	cmd, _ := toCommand(types.ClientMessage{Type: types.MsgSubmitAnswer, Text: "ｔｏｋｙｏ"})
	if cmd.Text != "ｔｏｋｙｏ" {
		t.Fatalf("submitted text must pass through untouched, got %q", cmd.Text)
	}
}
