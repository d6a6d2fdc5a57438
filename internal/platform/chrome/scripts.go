package chrome

// queryResult mirrors the object returned by queryJS.
type queryResult struct {
	Stale bool     `json:"stale"`
	Error string   `json:"error"`
	Nodes []jsNode `json:"nodes"`
}

type jsNode struct {
	Index   int               `json:"index"`
	Tag     string            `json:"tag"`
	Text    string            `json:"text"`
	Attrs   map[string]string `json:"attrs"`
	Bounds  [4]float64        `json:"bounds"`
	Visible bool              `json:"visible"`
}

// nodeResult mirrors the object returned by nodeJS.
type nodeResult struct {
	Stale  bool       `json:"stale"`
	Bounds [4]float64 `json:"bounds"`
}

// queryJS is called as (selector, gen, parentIndex). A parentIndex of -1
// queries the whole document and starts generation gen; otherwise the
// query runs under the registered parent of the current generation.
const queryJS = `function(sel, gen, parent) {
  var reg = window.__listImport;
  var root = document;
  if (parent < 0) {
    reg = window.__listImport = {gen: gen, nodes: []};
  } else {
    if (!reg || reg.gen !== gen) return {stale: true};
    root = reg.nodes[parent];
    if (!root || !root.isConnected) return {stale: true};
  }
  var found;
  try {
    found = root.querySelectorAll(sel);
  } catch (e) {
    return {error: String(e && e.message || e)};
  }
  var nodes = [];
  for (var i = 0; i < found.length; i++) {
    var el = found[i];
    var r = el.getBoundingClientRect();
    var visible = el.offsetParent !== null;
    if (!visible) {
      var cs = window.getComputedStyle(el);
      visible = cs.position === 'fixed' && cs.display !== 'none' && r.width > 0 && r.height > 0;
    }
    var attrs = {};
    for (var j = 0; j < el.attributes.length; j++) {
      attrs[el.attributes[j].name] = el.attributes[j].value;
    }
    var text = el.textContent || '';
    if (text.length > 2000) text = text.slice(0, 2000);
    nodes.push({
      index: reg.nodes.length,
      tag: el.tagName.toLowerCase(),
      text: text,
      attrs: attrs,
      bounds: [r.left, r.top, r.width, r.height],
      visible: visible
    });
    reg.nodes.push(el);
  }
  return {nodes: nodes};
}`

// nodeJS wraps a body that operates on `el`. Format args: gen, index, body.
const nodeJS = `(function() {
  var reg = window.__listImport;
  if (!reg || reg.gen !== %d) return {stale: true};
  var el = reg.nodes[%d];
  if (!el || !el.isConnected) return {stale: true};
  %s
})()`

const boundsBody = `el.scrollIntoView({block: 'center', inline: 'center'});
  var r = el.getBoundingClientRect();
  return {bounds: [r.left, r.top, r.width, r.height]};`

const focusBody = `el.focus();
  return {};`

// setValueBody goes through the prototype's value setter so frameworks
// that shadow the instance property still see the change. Format arg: the
// JSON-encoded value.
const setValueBody = `var value = %s;
  el.focus();
  var proto = window.HTMLInputElement.prototype;
  if (el instanceof window.HTMLTextAreaElement) proto = window.HTMLTextAreaElement.prototype;
  var desc = Object.getOwnPropertyDescriptor(proto, 'value');
  if (desc && desc.set) {
    desc.set.call(el, value);
  } else {
    el.value = value;
  }
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return {};`
