package mathjax

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// bootstrapTemplate is the page MathJax runs in. The configuration object is
// injected as JSON; the conversion entry point is window.mathpageTypeset.
var bootstrapTemplate = template.Must(template.New("bootstrap").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<script>
window.MathJax = {{.Config}};
window.MathJax.tex = Object.assign(window.MathJax.tex || {}, {
  formatError: function (jax, err) { throw err; }
});
window.MathJax.startup = { typeset: false };
</script>
<script src="{{.URL}}"></script>
<script>
function mathpageSpeechEngine() {
  var a11y = MathJax._ && MathJax._.a11y;
  var sre = window.SRE || (a11y && a11y.sre && (a11y.sre.Sre || a11y.sre));
  return sre && sre.toSpeech ? sre : null;
}
async function mathpageSpeak(req, input, opts) {
  var sre = mathpageSpeechEngine();
  if (!sre) {
    return "";
  }
  // "default" was the chromevox rules, which current SRE replaced with clearspeak.
  var domain = req.speakRuleset === "default" ? "clearspeak" : (req.speakRuleset || "mathspeak");
  await sre.setupEngine({ domain: domain, style: req.speakStyle || "default", modality: "speech", locale: "en" });
  if (sre.engineReady) {
    await sre.engineReady();
  }
  return sre.toSpeech(MathJax[input + "2mml"](req.math, opts));
}
window.mathpageTypeset = async function (req) {
  await MathJax.startup.promise;
  var adaptor = MathJax.startup.adaptor;
  var result = { outputs: {}, css: "", defs: "", errors: [] };
  var input = { "TeX": "tex", "inline-TeX": "tex", "AsciiMath": "asciimath", "MathML": "mathml" }[req.format];
  if (!input) {
    result.errors.push("unknown input format: " + req.format);
    return result;
  }
  var opts = {
    display: req.format === "TeX",
    em: req.ex * 2,
    ex: req.ex,
    containerWidth: req.width * req.ex
  };
  var speech = "";
  if (req.math !== "" && req.speakText) {
    try {
      speech = await mathpageSpeak(req, input, opts);
    } catch (err) {}
  }
  if (req.math !== "") {
    try {
      for (var i = 0; i < req.outputs.length; i++) {
        var kind = req.outputs[i];
        if (kind === "svg") {
          var node = MathJax[input + "2svg"](req.math, opts);
          var svg = node.querySelector("svg");
          if (speech) {
            svg.setAttribute("aria-label", speech);
            svg.setAttribute("role", "img");
          }
          result.outputs.svg = svg.outerHTML;
        } else if (kind === "html") {
          var container = MathJax[input + "2chtml"](req.math, opts);
          if (speech) {
            adaptor.setAttribute(container, "aria-label", speech);
            adaptor.setAttribute(container, "role", "img");
          }
          result.outputs.html = adaptor.outerHTML(container);
        } else if (kind === "mml") {
          result.outputs.mml = MathJax[input + "2mml"](req.math, opts);
        }
      }
    } catch (err) {
      result.errors.push(String((err && err.message) || err));
      return result;
    }
  }
  if (req.css) {
    var sheet = req.outputs.indexOf("html") >= 0 ? MathJax.chtmlStylesheet() : MathJax.svgStylesheet();
    result.css = adaptor.textContent(sheet);
  }
  if (req.useGlobalCache) {
    try {
      var cache = MathJax.startup.document.outputJax.fontCache.getCache();
      var defs = cache.querySelector ? cache.querySelector("defs") : null;
      result.defs = (defs || cache).innerHTML || "";
    } catch (err) {}
  }
  return result;
};
</script>
</head>
<body></body>
</html>`))

// readyJS resolves once MathJax finished loading its components.
const readyJS = `() => MathJax.startup.promise.then(() => true)`

// typesetJS runs one conversion.
const typesetJS = `(req) => window.mathpageTypeset(req)`

// mathjaxConfig is the window.MathJax object before startup.
type mathjaxConfig struct {
	Loader struct {
		Load []string `json:"load"`
	} `json:"loader"`
	TeX struct {
		Packages map[string][]string `json:"packages,omitempty"`
		Tags     string              `json:"tags"`
	} `json:"tex"`
	SVG struct {
		FontCache string `json:"fontCache"`
	} `json:"svg"`
	CHTML struct {
		FontURL string `json:"fontURL,omitempty"`
	} `json:"chtml"`
}

// bootstrapHTML renders the bootstrap page for opts and cfg.
func bootstrapHTML(opts Options, cfg pageConfig) (string, error) {
	var mc mathjaxConfig
	mc.Loader.Load = []string{"input/tex-full", "input/asciimath", "input/mml", "output/svg", "output/chtml"}
	for _, ext := range opts.Extensions {
		if ext = strings.TrimSpace(ext); ext != "" {
			mc.Loader.Load = append(mc.Loader.Load, "[tex]/"+ext)
			if mc.TeX.Packages == nil {
				mc.TeX.Packages = map[string][]string{"[+]": nil}
			}
			mc.TeX.Packages["[+]"] = append(mc.TeX.Packages["[+]"], ext)
		}
	}
	if cfg.Speech {
		mc.Loader.Load = append(mc.Loader.Load, "a11y/sre")
	}
	mc.TeX.Tags = cfg.EquationNumbers
	mc.SVG.FontCache = cfg.FontCache
	mc.CHTML.FontURL = opts.FontURL

	config, err := json.Marshal(mc)
	if err != nil {
		return "", fmt.Errorf("encoding MathJax config: %w", err)
	}

	var b strings.Builder
	err = bootstrapTemplate.Execute(&b, struct {
		Config string
		URL    string
	}{string(config), opts.URL})
	if err != nil {
		return "", fmt.Errorf("rendering bootstrap page: %w", err)
	}
	return b.String(), nil
}
