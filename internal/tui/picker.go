package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/docchat/internal/ragapi"
)

type documentPicker struct {
	documents []ragapi.Document
	cursor    int
	loading   bool
	deleting  string
	err       string
}

func (p *documentPicker) selected() (ragapi.Document, bool) {
	if p.cursor < 0 || p.cursor >= len(p.documents) {
		return ragapi.Document{}, false
	}
	return p.documents[p.cursor], true
}

func (p *documentPicker) move(delta int) {
	if len(p.documents) == 0 {
		p.cursor = 0
		return
	}
	p.cursor += delta
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor >= len(p.documents) {
		p.cursor = len(p.documents) - 1
	}
}

func (m *model) openPicker() tea.Cmd {
	m.stage = stagePicker
	m.composer.Blur()
	m.infoMessage = "Pick a document to chat with."
	return m.loadDocumentsCmd()
}

func (m *model) closePicker() {
	m.stage = stageChat
	m.composer.Focus()
	if m.config.Conversation.Scope() == "" {
		m.composer.Placeholder = composerNoScopePlaceholder
		m.infoMessage = "No document selected."
	} else {
		m.composer.Placeholder = composerPlaceholder
	}
	m.markViewportDirty()
}

func (m *model) loadDocumentsCmd() tea.Cmd {
	m.picker.loading = true
	m.picker.err = ""
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindDocuments, listDocumentsJob(m.config.Documents)))
}

func (m *model) handlePickerKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.closePicker()
		return m, nil
	case "up", "k":
		m.picker.move(-1)
	case "down", "j":
		m.picker.move(1)
	case "enter":
		m.selectDocument()
	case "r":
		if m.picker.loading {
			return m, nil
		}
		if refresher, ok := m.config.Documents.(interface{ InvalidateSummaries() }); ok {
			refresher.InvalidateSummaries()
		}
		return m, m.loadDocumentsCmd()
	case "x":
		doc, ok := m.picker.selected()
		if !ok || m.picker.deleting != "" {
			return m, nil
		}
		m.picker.deleting = doc.FileID
		m.picker.err = ""
		m.infoMessage = fmt.Sprintf("Deleting %s…", doc.Label())
		return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindDelete, deleteIndexJob(m.config.Documents, doc.FileID)))
	case "?":
		m.toggleHelp()
	}
	return m, nil
}

// selectDocument points the conversation at the highlighted document. Picking the
// current document keeps its transcript.
func (m *model) selectDocument() {
	doc, ok := m.picker.selected()
	if !ok {
		return
	}
	ctrl := m.config.Conversation
	if doc.FileID != ctrl.Scope() {
		ctrl.Retarget(doc.FileID)
		m.composer.SetValue("")
		m.renderedEntries = 0
		m.logger.Info("document selected", zap.String("scope", doc.FileID))
	}
	m.closePicker()
	m.infoMessage = fmt.Sprintf("Chatting with %s.", doc.Label())
}

func (m *model) handleDocumentsResult(msg documentsResultMsg) {
	m.picker.loading = false
	if msg.err != nil {
		m.picker.err = msg.err.Error()
		return
	}
	m.picker.documents = msg.documents
	m.picker.cursor = 0
	scope := m.config.Conversation.Scope()
	for idx, doc := range msg.documents {
		if doc.FileID == scope {
			m.picker.cursor = idx
			break
		}
	}
}

func (m *model) handleDeleteResult(msg deleteResultMsg) {
	m.picker.deleting = ""
	if msg.err != nil {
		m.picker.err = msg.err.Error()
		m.infoMessage = "Delete failed."
		return
	}
	kept := m.picker.documents[:0]
	for _, doc := range m.picker.documents {
		if doc.FileID != msg.fileID {
			kept = append(kept, doc)
		}
	}
	m.picker.documents = kept
	m.picker.move(0)
	m.infoMessage = msg.message
	if m.config.Conversation.Scope() == msg.fileID {
		m.config.Conversation.Retarget("")
		m.renderedEntries = 0
		m.markViewportDirty()
		m.infoMessage = msg.message + " The open conversation was closed."
	}
}

func (m *model) pickerView() string {
	rows := []string{sectionHeaderStyle.Render("Indexed Documents")}
	switch {
	case m.picker.loading:
		rows = append(rows, helperStyle.Render(fmt.Sprintf("%s Loading documents…", m.spinner.View())))
	case len(m.picker.documents) == 0 && m.picker.err == "":
		rows = append(rows, helperStyle.Render("No indexed documents found. Index one with the retrieval service, then press r."))
	}
	if m.picker.err != "" {
		rows = append(rows, errorStyle.Render(m.picker.err))
	}
	scope := m.config.Conversation.Scope()
	wrap := m.wrapWidth(6)
	for idx, doc := range m.picker.documents {
		label := doc.Label()
		if doc.FileName != "" && doc.FileName != doc.FileID {
			label = fmt.Sprintf("%s (%s)", doc.FileName, doc.FileID)
		}
		if doc.FileID == scope {
			label += "  • current"
		}
		if doc.FileID == m.picker.deleting {
			label += "  • deleting…"
		}
		if idx == m.picker.cursor {
			rows = append(rows, currentLineStyle.Render("▸ "+label))
		} else {
			rows = append(rows, "  "+label)
		}
		if summary := previewText(doc.Summary, summaryPreviewLimit); summary != "" {
			rows = append(rows, helperStyle.Render(indentMultiline(wrapText(summary, wrap), "    ")))
		}
	}
	rows = append(rows, "", helperStyle.Render("Enter: chat • x: delete index • r: refresh • Esc: back"))
	return strings.Join(rows, "\n")
}
