package api

import "net/http"

// handleIndex serves the host page. It renders the windows pushed over
// /api/surface and reports user interaction back.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>deskpane</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            margin: 0;
            min-height: 100vh;
            background: #20242c;
        }
        body.no-overflow { overflow: hidden; }
        .window {
            position: absolute;
            box-sizing: border-box;
            display: flex;
            flex-direction: column;
            background: #eceff4;
            border: 1px solid #0f1115;
            border-radius: 6px;
            box-shadow: 0 6px 18px rgba(0,0,0,0.35);
            transition: opacity 0.2s, transform 0.2s;
        }
        .window.intro { opacity: 0; transform: scale(0.96); }
        .window.outro { opacity: 0; transform: scale(0.96); }
        .titlebar {
            display: flex;
            align-items: center;
            height: 28px;
            padding: 0 8px;
            background: #78808c;
            color: white;
            cursor: move;
            user-select: none;
            border-radius: 6px 6px 0 0;
        }
        .window.active .titlebar { background: #3b82f6; }
        .titlebar .title { flex: 1; overflow: hidden; white-space: nowrap; text-overflow: ellipsis; }
        .titlebar button {
            background: none;
            border: none;
            color: white;
            cursor: pointer;
            font-size: 14px;
        }
        .content { flex: 1; padding: 12px; overflow: auto; font-size: 13px; }
        .grip {
            position: absolute;
            right: 0;
            bottom: 0;
            width: 12px;
            height: 12px;
            cursor: nwse-resize;
        }
    </style>
</head>
<body>
    <script>
        const windows = new Map();
        const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
        const ws = new WebSocket(proto + '//' + location.host + '/api/surface');

        function send(msg) {
            if (ws.readyState === WebSocket.OPEN) ws.send(JSON.stringify(msg));
        }

        function reportViewport() {
            send({type: 'viewport', width: window.innerWidth, height: window.innerHeight});
        }

        function place(el, rect) {
            el.style.left = rect.x + 'px';
            el.style.top = rect.y + 'px';
            el.style.width = rect.width + 'px';
            el.style.height = rect.height + 'px';
            el.dataset.rect = [rect.x, rect.y, rect.width, rect.height].join(',');
        }

        // Stylesheets may override the rect the server asked for; report
        // where the element actually ended up.
        function reportPlacement(id) {
            const w = windows.get(id);
            if (!w || w.closing) return;
            const el = w.el;
            const actual = [el.offsetLeft, el.offsetTop, el.offsetWidth, el.offsetHeight];
            if (actual.join(',') === el.dataset.rect) return;
            el.dataset.rect = actual.join(',');
            send({type: 'placement', id: id, placement: {
                left: actual[0] + 'px',
                top: actual[1] + 'px',
                width: actual[2] + 'px',
                height: actual[3] + 'px',
            }});
        }

        function track(handle, id, type, keys) {
            handle.addEventListener('pointerdown', (e) => {
                if (e.target.tagName === 'BUTTON') return;
                e.preventDefault();
                let lastX = e.clientX, lastY = e.clientY;
                const move = (m) => {
                    const msg = {type: type, id: id};
                    msg[keys[0]] = m.clientX - lastX;
                    msg[keys[1]] = m.clientY - lastY;
                    lastX = m.clientX;
                    lastY = m.clientY;
                    send(msg);
                };
                const up = () => {
                    window.removeEventListener('pointermove', move);
                    window.removeEventListener('pointerup', up);
                };
                window.addEventListener('pointermove', move);
                window.addEventListener('pointerup', up);
            });
        }

        function mount(msg) {
            const props = msg.props || {};
            const opts = props.options || {};
            const el = document.createElement('div');
            el.className = 'window' + (opts.custom_window_class ? ' ' + opts.custom_window_class : '');
            el.style.zIndex = opts.always_on_top ? 20000 + msg.id : 1000 + msg.id;

            const bar = document.createElement('div');
            bar.className = 'titlebar' + (opts.custom_titlebar_class ? ' ' + opts.custom_titlebar_class : '');
            const title = document.createElement('span');
            title.className = 'title';
            title.textContent = opts.title || '';
            bar.appendChild(title);

            (opts.custom_titlebar_buttons || []).forEach((b) => {
                const btn = document.createElement('button');
                btn.textContent = b.value;
                if (opts.custom_titlebar_button_class) btn.className = opts.custom_titlebar_button_class;
                btn.onclick = () => send({type: 'button', id: msg.id, action: b.action});
                bar.appendChild(btn);
            });

            const close = document.createElement('button');
            close.textContent = '×';
            close.onclick = () => send({type: 'close', id: msg.id});
            bar.appendChild(close);
            el.appendChild(bar);

            const content = document.createElement('div');
            content.className = 'content';
            content.textContent = props.component + (props.component_props ? ' ' + JSON.stringify(props.component_props) : '');
            el.appendChild(content);

            if (opts.resizable) {
                const grip = document.createElement('div');
                grip.className = 'grip';
                el.appendChild(grip);
                track(grip, msg.id, 'resize', ['dw', 'dh']);
            }
            track(bar, msg.id, 'drag', ['dx', 'dy']);
            el.addEventListener('pointerdown', () => send({type: 'activate', id: msg.id}));

            place(el, msg.rect);
            if (msg.intro) {
                el.classList.add('intro');
                requestAnimationFrame(() => requestAnimationFrame(() => el.classList.remove('intro')));
            }
            const observer = new ResizeObserver(() => reportPlacement(msg.id));
            windows.set(msg.id, {el: el, opts: opts, observer: observer});
            document.body.appendChild(el);
            observer.observe(el);
            setActive(msg.id, msg.active);
        }

        function unmount(id) {
            const w = windows.get(id);
            if (!w) return;
            w.observer.disconnect();
            w.el.remove();
            windows.delete(id);
        }

        function setActive(id, active) {
            const w = windows.get(id);
            if (!w) return;
            w.el.classList.toggle('active', !!active);
            const bar = w.el.querySelector('.titlebar');
            if (w.opts.custom_inactive_titlebar_class) {
                bar.classList.toggle(w.opts.custom_inactive_titlebar_class, !active);
            }
        }

        ws.onopen = reportViewport;
        window.addEventListener('resize', reportViewport);

        ws.onmessage = (event) => {
            const msg = JSON.parse(event.data);
            const w = windows.get(msg.id);
            switch (msg.type) {
                case 'mount':
                    unmount(msg.id);
                    mount(msg);
                    break;
                case 'state':
                    setActive(msg.id, msg.active);
                    break;
                case 'frame':
                    if (!w) break;
                    place(w.el, msg.rect);
                    requestAnimationFrame(() => reportPlacement(msg.id));
                    break;
                case 'outro':
                    if (!w) break;
                    w.closing = true;
                    w.el.classList.add('outro');
                    w.el.addEventListener('transitionend', () => send({type: 'outro_done', id: msg.id}), {once: true});
                    break;
                case 'destroy':
                    unmount(msg.id);
                    break;
                case 'body_overflow':
                    document.body.classList.toggle('no-overflow', !!msg.hidden);
                    break;
            }
        };
    </script>
</body>
</html>`
