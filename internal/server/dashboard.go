package server

// DashboardHTML is the single-page live view served at /dashboard/. It
// polls /api/status and listens on /ws for capture and playback events.
const DashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>vmcloop</title>
<style>
  :root {
    --bg: #10141a; --panel: #171c24; --line: #2a313c; --text: #d7dde5; --dim: #7d8896;
    --rec: #6cb6ff; --send: #57d38c; --fail: #ff6b6b; --loop: #c6a0f6;
  }
  html, body { margin: 0; background: var(--bg); color: var(--text); }
  body { font: 14px/1.4 ui-monospace, SFMono-Regular, Menlo, Consolas, monospace; padding: 18px 22px; }
  header { display: flex; align-items: baseline; gap: 12px; margin-bottom: 14px; }
  header h1 { margin: 0; font-size: 20px; color: var(--rec); }
  header small { color: var(--dim); }
  .panel { background: var(--panel); border: 1px solid var(--line); border-radius: 4px; }
  .bar { display: flex; flex-wrap: wrap; gap: 28px; padding: 10px 14px; margin-bottom: 14px; }
  .bar dt { font-size: 11px; color: var(--dim); letter-spacing: .06em; }
  .bar dd { margin: 0; font-weight: 600; }
  .up { color: var(--send); }
  .down { color: var(--fail); }
  .counters { display: grid; grid-template-columns: repeat(auto-fill, minmax(160px, 1fr)); gap: 10px; margin-bottom: 14px; }
  .counters .panel { padding: 12px; }
  .counters b { display: block; font-size: 26px; }
  .counters span { color: var(--dim); font-size: 12px; }
  #c-recorded { color: var(--rec); }
  #c-sent { color: var(--send); }
  #c-errors { color: var(--fail); }
  #c-loops { color: var(--loop); }
  .log-head { display: flex; justify-content: space-between; padding: 8px 14px; border-bottom: 1px solid var(--line); }
  .log-head button { background: none; color: var(--text); border: 1px solid var(--line); border-radius: 3px; cursor: pointer; }
  #events { max-height: 480px; overflow-y: auto; }
  .row { display: grid; grid-template-columns: 120px 60px 1fr 80px 110px; gap: 8px; padding: 5px 14px; border-bottom: 1px solid #1f252e; }
  .row:hover { background: #1b212a; }
  .tag { font-size: 11px; font-weight: 700; }
  .tag.capture { color: var(--rec); }
  .tag.playback { color: var(--send); }
  .tag.error { color: var(--fail); }
  .what { color: var(--loop); overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
  .dim { color: var(--dim); }
  .idle { padding: 48px 14px; text-align: center; color: var(--dim); }
</style>
</head>
<body>
<header>
  <h1>vmcloop</h1>
  <small>VMC motion capture loop</small>
</header>

<dl class="panel bar">
  <div><dt>FEED</dt><dd class="down" id="conn">offline</dd></div>
  <div><dt>RECORDER</dt><dd id="recorder-state">-</dd></div>
  <div><dt>PLAYER</dt><dd id="player-state">-</dd></div>
  <div><dt>PERIOD</dt><dd id="period">-</dd></div>
  <div><dt>EVENTS/S</dt><dd id="rate">0</dd></div>
  <div><dt>THINNED</dt><dd id="dropped">0</dd></div>
</dl>

<div class="counters">
  <div class="panel"><b id="c-recorded">0</b><span>packets recorded</span></div>
  <div class="panel"><b id="c-sent">0</b><span>packets sent</span></div>
  <div class="panel"><b id="c-errors">0</b><span>send errors</span></div>
  <div class="panel"><b id="c-loops">0</b><span>loops</span></div>
</div>

<div class="panel">
  <div class="log-head"><span>live events</span><button onclick="resetLog()">clear</button></div>
  <div id="events"></div>
</div>

<script>
const MAX_ROWS = 200;
const log = document.getElementById('events');
let stamps = [];

function text(id, v) { document.getElementById(id).textContent = v; }
function ms(ns) { return Math.round(ns / 1e6) + ' ms'; }

function esc(s) {
  const d = document.createElement('div');
  d.textContent = s;
  return d.innerHTML;
}

function resetLog() {
  stamps = [];
  log.innerHTML = '<div class="idle">waiting for capture or playback events</div>';
}

function connect() {
  const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
  const conn = document.getElementById('conn');
  ws.onopen = () => { conn.textContent = 'online'; conn.className = 'up'; };
  ws.onclose = () => {
    conn.textContent = 'offline';
    conn.className = 'down';
    setTimeout(connect, 2000);
  };
  ws.onmessage = (m) => {
    const env = JSON.parse(m.data);
    show(env.type, env.data);
  };
}

function show(type, ev) {
  const idle = log.querySelector('.idle');
  if (idle) idle.remove();

  const now = Date.now();
  stamps = stamps.filter(t => now - t < 1000);
  stamps.push(now);
  text('rate', stamps.length);

  let tag, what, extra;
  if (type === 'capture') {
    tag = '<span class="tag capture">REC</span>';
    what = ev.address;
    extra = ev.messages + ' msg';
  } else if (ev.error) {
    tag = '<span class="tag error">FAIL</span>';
    what = ev.error;
    extra = 'round ' + ev.round;
  } else {
    tag = '<span class="tag playback">SEND</span>';
    what = 'packet #' + ev.index + ' (' + ev.bytes + ' B)';
    extra = 'round ' + ev.round;
  }
  const at = new Date(ev.time).toISOString().substring(11, 23);

  const row = document.createElement('div');
  row.className = 'row';
  row.innerHTML = '<span class="dim">' + at + '</span>' + tag +
    '<span class="what">' + esc(what) + '</span>' +
    '<span class="dim">' + ms(ev.offset) + '</span>' +
    '<span>' + esc(extra) + '</span>';
  log.prepend(row);
  while (log.children.length > MAX_ROWS) log.lastChild.remove();
}

async function poll() {
  try {
    const st = await (await fetch('/api/status')).json();
    const rec = st.components.recorder;
    const play = st.components.player;
    if (rec) {
      text('recorder-state', rec.state);
      text('c-recorded', rec.packets_recorded);
    }
    if (play) {
      text('player-state', play.state);
      text('period', ms(play.period));
      text('c-sent', play.sent);
      text('c-errors', play.send_errors);
      text('c-loops', play.loops);
    }
    const dropped = Object.values(st.feed_dropped || {}).reduce((a, b) => a + b, 0);
    text('dropped', dropped);
  } catch (e) {}
}

resetLog();
connect();
poll();
setInterval(poll, 1000);
</script>
</body>
</html>`
