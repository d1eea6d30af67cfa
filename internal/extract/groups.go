package extract

import (
	"strings"

	"github.com/phobologic/whatsupdoc/internal/comment"
	"github.com/phobologic/whatsupdoc/internal/diag"
	"github.com/phobologic/whatsupdoc/internal/model"
)

// ResolveDescription drains every queued token on or before line, applying
// group directives, and returns the prose that documents the declaration
// at that line.
func (s *Session) ResolveDescription(line int) string {
	var desc []string
	for len(s.queue) > 0 && s.queue[0].Line <= line {
		tok := s.queue[0]
		s.queue = s.queue[1:]
		s.apply(tok, &desc)
	}
	return strings.Join(desc, "\n")
}

func (s *Session) apply(tok comment.Token, desc *[]string) {
	loc := model.Location{File: s.file, Line: tok.Line}
	switch tok.Kind {
	case comment.DefGroup:
		g := s.reg.GetOrCreate(tok.Group, model.Group, loc)
		if g.Name == "" {
			g.Name = tok.Title
		}
		s.group.pending = tok.Group
		s.capture = tok.Group
		s.captureFresh = g.Description == ""

	case comment.InGroup:
		s.capture = ""
		if g := s.reg.Canonical(tok.Group); g == nil || g.Kind != model.Group {
			s.diag(diag.InvalidGroup, loc, "unknown group %q", tok.Group)
			return
		}
		s.group.pending = tok.Group
		s.group.active = tok.Group

	case comment.MemberGroup:
		s.capture = ""
		s.member.pending = tok.Group

	case comment.BlockStart:
		s.capture = ""
		switch {
		case s.member.pending != "":
			s.member.active, s.member.pending = s.member.pending, ""
		case s.group.pending != "":
			s.group.active, s.group.pending = s.group.pending, ""
		default:
			s.diag(diag.InvalidGroup, loc, "@{ without a pending group")
		}

	case comment.BlockEnd:
		s.capture = ""
		switch {
		case s.member.active != "":
			s.member.active = ""
		case s.group.active != "":
			s.group.active, s.group.pending = "", ""
		default:
			s.diag(diag.InvalidGroup, loc, "@} without an open group")
		}

	case comment.Deprecated:
		s.deprecated = true
		s.deprecationNote = tok.Text

	case comment.CodeBlockStart:
		s.appendText(desc, "```"+tok.Text)
	case comment.CodeBlockEnd:
		s.appendText(desc, "```")
	case comment.CodeLine, comment.TextLine:
		s.appendText(desc, tok.Text)

	case comment.CommentEnd:
		s.capture = ""
	}
}

// appendText routes a line to the group being described (directly after
// @defgroup) or to the running description. A group described before keeps
// its first description.
func (s *Session) appendText(desc *[]string, text string) {
	if s.capture != "" {
		g := s.reg.Canonical(s.capture)
		switch {
		case g == nil || !s.captureFresh:
		case g.Description == "":
			g.Description = text
		default:
			g.Description += "\n" + text
		}
		return
	}
	*desc = append(*desc, text)
}
