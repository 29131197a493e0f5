package chat

import (
	"html/template"
	"net/http"
)

var chatUI = template.Must(template.New("chatui").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.StoreName}} - Pedidos</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background-color: #f7f3ee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        .header {
            background-color: #b3261e;
            color: white;
            padding: 1rem;
            text-align: center;
        }
        .header p { font-size: 0.9rem; opacity: 0.85; }
        .chat-container {
            flex: 1;
            display: flex;
            flex-direction: column;
            max-width: 800px;
            margin: 0 auto;
            width: 100%;
            background: white;
            min-height: 0;
        }
        .messages {
            flex: 1;
            padding: 1rem;
            overflow-y: auto;
            display: flex;
            flex-direction: column;
            gap: 1rem;
        }
        .message {
            max-width: 80%;
            padding: 0.75rem 1rem;
            border-radius: 1rem;
            white-space: pre-line;
            word-wrap: break-word;
        }
        .message.user { align-self: flex-end; background-color: #b3261e; color: white; }
        .message.assistant { align-self: flex-start; background-color: #eee6dc; color: #333; }
        .message.system {
            align-self: center;
            background-color: #fff3cd;
            color: #856404;
            font-size: 0.9rem;
        }
        .typing-indicator {
            display: none;
            padding: 0 1rem 0.5rem;
            color: #6c757d;
            font-style: italic;
        }
        .input-container {
            padding: 1rem;
            border-top: 1px solid #dee2e6;
            display: flex;
            gap: 0.5rem;
        }
        .message-input {
            flex: 1;
            padding: 0.75rem;
            border: 1px solid #ced4da;
            border-radius: 0.5rem;
            font-size: 1rem;
        }
        .send-button {
            padding: 0.75rem 1.5rem;
            background-color: #b3261e;
            color: white;
            border: none;
            border-radius: 0.5rem;
            font-size: 1rem;
            cursor: pointer;
        }
        .send-button:disabled { background-color: #6c757d; cursor: not-allowed; }
        @media (max-width: 768px) { .message { max-width: 90%; } }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.StoreName}}</h1>
        <p>{{.Address}}</p>
    </div>
    <div class="chat-container">
        <div class="messages" id="messages">
            <div class="message assistant">¡Hola! ¿Qué te gustaría pedir hoy? Podés preguntarme por el menú, los horarios o armar tu pedido.</div>
        </div>
        <div class="typing-indicator" id="typing-indicator">Escribiendo...</div>
        <div class="input-container">
            <input type="text" id="message-input" class="message-input" placeholder="Escribí tu mensaje..." autocomplete="off">
            <button id="send-button" class="send-button">Enviar</button>
        </div>
    </div>
    <script>
        class ChatInterface {
            constructor() {
                this.sessionId = (window.crypto && crypto.randomUUID) ? crypto.randomUUID() : String(Date.now());
                this.messageInput = document.getElementById('message-input');
                this.sendButton = document.getElementById('send-button');
                this.messagesContainer = document.getElementById('messages');
                this.typingIndicator = document.getElementById('typing-indicator');
                this.sendButton.addEventListener('click', () => this.sendMessage());
                this.messageInput.addEventListener('keypress', (e) => {
                    if (e.key === 'Enter' && !e.shiftKey) {
                        e.preventDefault();
                        this.sendMessage();
                    }
                });
            }

            async sendMessage() {
                const message = this.messageInput.value.trim();
                if (!message) return;
                this.addMessage('user', message);
                this.messageInput.value = '';
                this.setLoading(true);
                try {
                    const response = await fetch('/api/chat', {
                        method: 'POST',
                        headers: { 'Content-Type': 'application/json' },
                        body: JSON.stringify({ message: message, session_id: this.sessionId })
                    });
                    const data = await response.json();
                    this.addMessage(response.status >= 500 ? 'system' : 'assistant', data.response || 'Sin respuesta');
                } catch (error) {
                    this.addMessage('system', 'No pudimos enviar tu mensaje. Probá de nuevo.');
                } finally {
                    this.setLoading(false);
                }
            }

            addMessage(type, content) {
                const div = document.createElement('div');
                div.className = 'message ' + type;
                div.textContent = content;
                this.messagesContainer.appendChild(div);
                this.messagesContainer.scrollTop = this.messagesContainer.scrollHeight;
            }

            setLoading(loading) {
                this.sendButton.disabled = loading;
                this.messageInput.disabled = loading;
                this.typingIndicator.style.display = loading ? 'block' : 'none';
                if (!loading) this.messageInput.focus();
            }
        }
        document.addEventListener('DOMContentLoaded', () => new ChatInterface());
    </script>
</body>
</html>`))

type chatUIData struct {
	StoreName string
	Address   string
}

func (h *Handler) serveUI(w http.ResponseWriter, r *http.Request) {
	store := h.router.Store()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chatUI.Execute(w, chatUIData{StoreName: store.Name, Address: store.GetAddress()}); err != nil {
		h.logger.ErrorWithContext(r.Context(), "Failed to render chat UI", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
